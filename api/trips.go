package api

import (
	"context"
	"net/http"

	"github.com/gilby125/fly-or-drive/pkg/apperr"
	"github.com/gilby125/fly-or-drive/pkg/geo"
	"github.com/gilby125/fly-or-drive/resolve"
	"github.com/gilby125/fly-or-drive/trip"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// Estimator is the trip estimation the handlers need.
type Estimator interface {
	EstimateDriving(p trip.Params) (trip.Estimate, error)
	EstimateFlyOrDrive(ctx context.Context, p trip.Params) (trip.Estimate, error)
}

// TripRequest is accepted as a JSON body (POST) or as query parameters
// (GET). Origin and destination take anything the resolver understands.
type TripRequest struct {
	Origin      string `json:"origin" form:"origin"`
	Destination string `json:"destination" form:"destination"`

	RouteFactor          float64 `json:"route_factor" form:"route_factor"`
	AvgSpeedKmh          float64 `json:"avg_speed_kmh" form:"avg_speed_kmh"`
	FuelEconomyLPer100Km float64 `json:"fuel_economy_l_per_100km" form:"fuel_economy_l_per_100km"`
	FuelPricePerLiter    float64 `json:"fuel_price_per_liter" form:"fuel_price_per_liter"`
	FuelEconomyMPG       float64 `json:"fuel_economy_mpg" form:"fuel_economy_mpg"`
	FuelPricePerGallon   float64 `json:"fuel_price_per_gallon" form:"fuel_price_per_gallon"`

	Passengers int    `json:"passengers" form:"passengers"`
	TripType   string `json:"trip_type" form:"trip_type"`
	Unit       string `json:"unit" form:"unit"`
}

// TripResponse pairs the resolved ends with the estimate.
type TripResponse struct {
	Origin      resolve.Location `json:"origin"`
	Destination resolve.Location `json:"destination"`
	Estimate    trip.Estimate    `json:"estimate"`
}

// EstimateDrive returns a handler for /api/v1/trips/drive.
func EstimateDrive(est Estimator, resolver Resolver) gin.HandlerFunc {
	return tripHandler(resolver, func(ctx context.Context, p trip.Params) (trip.Estimate, error) {
		return est.EstimateDriving(p)
	})
}

// CompareTrip returns a handler for /api/v1/trips/compare.
func CompareTrip(est Estimator, resolver Resolver) gin.HandlerFunc {
	return tripHandler(resolver, est.EstimateFlyOrDrive)
}

func tripHandler(resolver Resolver, estimate func(context.Context, trip.Params) (trip.Estimate, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TripRequest
		if err := c.ShouldBind(&req); err != nil {
			respondError(c, apperr.InvalidArgument("body", "", err.Error()))
			return
		}
		if req.Origin == "" {
			respondError(c, apperr.InvalidArgument("origin", req.Origin, "is required"))
			return
		}
		if req.Destination == "" {
			respondError(c, apperr.InvalidArgument("destination", req.Destination, "is required"))
			return
		}

		ctx := c.Request.Context()
		var from, to resolve.Location
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			from, err = resolveEnd(gctx, resolver, "origin", req.Origin)
			return err
		})
		g.Go(func() error {
			var err error
			to, err = resolveEnd(gctx, resolver, "destination", req.Destination)
			return err
		})
		if err := g.Wait(); err != nil {
			respondError(c, err)
			return
		}

		result, err := estimate(ctx, req.params(from.Coordinates, to.Coordinates))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, TripResponse{
			Origin:      from,
			Destination: to,
			Estimate:    result,
		})
	}
}

func (r TripRequest) params(from, to geo.Coordinates) trip.Params {
	return trip.Params{
		Origin:               from,
		Destination:          to,
		RouteFactor:          r.RouteFactor,
		AvgSpeedKmh:          r.AvgSpeedKmh,
		FuelEconomyLPer100Km: r.FuelEconomyLPer100Km,
		FuelPricePerLiter:    r.FuelPricePerLiter,
		FuelEconomyMPG:       r.FuelEconomyMPG,
		FuelPricePerGallon:   r.FuelPricePerGallon,
		Passengers:           r.Passengers,
		TripType:             trip.Type(r.TripType),
		Unit:                 geo.Unit(r.Unit),
	}
}
