package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gilby125/fly-or-drive/airports"
	"github.com/gilby125/fly-or-drive/pkg/geo"
	"github.com/gilby125/fly-or-drive/resolve"
	"github.com/gilby125/fly-or-drive/trip"
	"github.com/mark3labs/mcp-go/mcp"
)

type airportFinder interface {
	DefaultQuery(origin geo.Coordinates) airports.Query
	FindNearest(ctx context.Context, q airports.Query) ([]airports.DistanceResult, error)
}

type tripEstimator interface {
	EstimateDriving(p trip.Params) (trip.Estimate, error)
	EstimateFlyOrDrive(ctx context.Context, p trip.Params) (trip.Estimate, error)
}

type locationResolver interface {
	Resolve(ctx context.Context, input string) (resolve.Location, error)
}

type tools struct {
	finder    airportFinder
	estimator tripEstimator
	resolver  locationResolver
}

var nearestAirportsTool = mcp.NewTool("nearest_airports",
	mcp.WithDescription("Find the airports closest to a location, ordered by great-circle distance"),
	mcp.WithString("location",
		mcp.Required(),
		mcp.Description("\"lat,lon\", a three-letter IATA code, or a place name (e.g. \"39.74,-104.99\", \"DEN\", \"Boulder, Colorado\")"),
	),
	mcp.WithNumber("radius_km",
		mcp.Description("Search radius in kilometres (default 2000)"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of airports (default 3)"),
	),
	mcp.WithString("iso_country",
		mcp.Description("Only airports in this ISO 3166-1 alpha-2 country (e.g. US)"),
	),
	mcp.WithString("unit",
		mcp.Description("Distance unit for display: km or mi. Default km."),
	),
	mcp.WithBoolean("include_inactive",
		mcp.Description("Include closed airports"),
	),
)

var estimateTripTool = mcp.NewTool("estimate_trip",
	mcp.WithDescription("Estimate driving distance, time and fuel cost between two locations and, in compare mode, recommend flying or driving"),
	mcp.WithString("origin",
		mcp.Required(),
		mcp.Description("Start: \"lat,lon\", IATA code or place name"),
	),
	mcp.WithString("destination",
		mcp.Required(),
		mcp.Description("End: \"lat,lon\", IATA code or place name"),
	),
	mcp.WithString("mode",
		mcp.Description("'compare' (fly or drive, default) or 'drive' (driving only)"),
	),
	mcp.WithString("trip_type",
		mcp.Description("'one_way' (default) or 'round_trip'"),
	),
	mcp.WithNumber("passengers",
		mcp.Description("Number of passengers (default 1)"),
	),
	mcp.WithString("unit",
		mcp.Description("km or mi. Default km."),
	),
	mcp.WithNumber("fuel_economy_mpg",
		mcp.Description("Vehicle fuel economy in US miles per gallon"),
	),
	mcp.WithNumber("fuel_price_per_gallon",
		mcp.Description("Fuel price per US gallon"),
	),
	mcp.WithNumber("fuel_economy_l_per_100km",
		mcp.Description("Vehicle fuel economy in litres per 100 km"),
	),
	mcp.WithNumber("fuel_price_per_liter",
		mcp.Description("Fuel price per litre"),
	),
)

var resolveLocationTool = mcp.NewTool("resolve_location",
	mcp.WithDescription("Turn \"lat,lon\", an IATA code or a place name into coordinates"),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Location to resolve"),
	),
)

func (t tools) nearestAirports(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments format"), nil
	}

	location, _ := args["location"].(string)
	if strings.TrimSpace(location) == "" {
		return mcp.NewToolResultError("location is required"), nil
	}
	loc, err := t.resolver.Resolve(ctx, location)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Cannot resolve location: %v", err)), nil
	}

	q := t.finder.DefaultQuery(loc.Coordinates)
	if raw, ok := args["radius_km"]; ok {
		radius, isNum := raw.(float64)
		if !isNum {
			return mcp.NewToolResultError("radius_km must be a number"), nil
		}
		q.RadiusKm = radius
	}
	if raw, ok := args["limit"]; ok {
		limit, isNum := raw.(float64)
		if !isNum || limit != float64(int(limit)) {
			return mcp.NewToolResultError("limit must be an integer"), nil
		}
		q.Limit = int(limit)
	}
	q.ISOCountry, _ = args["iso_country"].(string)
	if unit, _ := args["unit"].(string); unit != "" {
		q.Unit = geo.Unit(strings.ToLower(unit))
	}
	q.IncludeInactive, _ = args["include_inactive"].(bool)

	results, err := t.finder.FindNearest(ctx, q)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error finding airports: %v", err)), nil
	}
	if results == nil {
		results = []airports.DistanceResult{}
	}

	return jsonResult(map[string]interface{}{
		"location": loc,
		"airports": results,
	})
}

func (t tools) estimateTrip(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments format"), nil
	}

	originStr, _ := args["origin"].(string)
	destinationStr, _ := args["destination"].(string)
	if strings.TrimSpace(originStr) == "" || strings.TrimSpace(destinationStr) == "" {
		return mcp.NewToolResultError("origin and destination are required"), nil
	}

	mode, _ := args["mode"].(string)
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != "" && mode != "compare" && mode != "drive" {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid mode: %s", mode)), nil
	}

	origin, err := t.resolver.Resolve(ctx, originStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Cannot resolve origin: %v", err)), nil
	}
	destination, err := t.resolver.Resolve(ctx, destinationStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Cannot resolve destination: %v", err)), nil
	}

	p := trip.Params{Origin: origin.Coordinates, Destination: destination.Coordinates}
	tripType, _ := args["trip_type"].(string)
	p.TripType = trip.Type(tripType)
	unit, _ := args["unit"].(string)
	p.Unit = geo.Unit(strings.ToLower(unit))
	if passengers, ok := args["passengers"].(float64); ok {
		p.Passengers = int(passengers)
	}
	p.FuelEconomyMPG, _ = args["fuel_economy_mpg"].(float64)
	p.FuelPricePerGallon, _ = args["fuel_price_per_gallon"].(float64)
	p.FuelEconomyLPer100Km, _ = args["fuel_economy_l_per_100km"].(float64)
	p.FuelPricePerLiter, _ = args["fuel_price_per_liter"].(float64)

	var estimate trip.Estimate
	if mode == "drive" {
		estimate, err = t.estimator.EstimateDriving(p)
	} else {
		estimate, err = t.estimator.EstimateFlyOrDrive(ctx, p)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error estimating trip: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"origin":      origin,
		"destination": destination,
		"estimate":    estimate,
	})
}

func (t tools) resolveLocation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments format"), nil
	}
	query, _ := args["query"].(string)

	loc, err := t.resolver.Resolve(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Cannot resolve location: %v", err)), nil
	}
	return jsonResult(loc)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error marshaling response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
