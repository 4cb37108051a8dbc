package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gilby125/fly-or-drive/airports"
	"github.com/gilby125/fly-or-drive/pkg/apperr"
	"github.com/gilby125/fly-or-drive/pkg/geo"
	"github.com/gilby125/fly-or-drive/resolve"
	"github.com/gin-gonic/gin"
)

// Finder is the nearest-airport operation the handlers need.
type Finder interface {
	DefaultQuery(origin geo.Coordinates) airports.Query
	Normalize(q airports.Query) (airports.Query, error)
	FindNearest(ctx context.Context, q airports.Query) ([]airports.DistanceResult, error)
}

// Resolver turns free-form location input into coordinates.
type Resolver interface {
	Resolve(ctx context.Context, input string) (resolve.Location, error)
}

// NearestAirportsResponse is returned by GET /api/v1/airports/nearest.
type NearestAirportsResponse struct {
	Query    airports.Query            `json:"query"`
	Location *resolve.Location         `json:"location,omitempty"`
	Count    int                       `json:"count"`
	Results  []airports.DistanceResult `json:"results"`
}

// GetNearestAirports returns a handler for nearest-airport lookups.
//
// The origin is either lat and lon, or a single location parameter
// ("lat,lon", an IATA code or a place name) when a resolver is configured.
// Optional: radius_km, limit, iso_country, unit (km|mi), include_inactive.
func GetNearestAirports(finder Finder, resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var (
			origin geo.Coordinates
			loc    *resolve.Location
			err    error
		)

		if input := c.Query("location"); input != "" && c.Query("lat") == "" && c.Query("lon") == "" {
			if resolver == nil {
				respondError(c, apperr.InvalidArgument("location", input, "location lookup is not enabled; use lat and lon"))
				return
			}
			resolved, err := resolveEnd(ctx, resolver, "location", input)
			if err != nil {
				respondError(c, err)
				return
			}
			loc = &resolved
			origin = resolved.Coordinates
		} else {
			if origin.Lat, err = requiredFloat(c, "lat"); err != nil {
				respondError(c, err)
				return
			}
			if origin.Lon, err = requiredFloat(c, "lon"); err != nil {
				respondError(c, err)
				return
			}
		}

		// Absent parameters keep the defaults; explicit ones, zero included,
		// go to Normalize as sent.
		q := finder.DefaultQuery(origin)
		if radius, ok, err := optionalFloat(c, "radius_km"); err != nil {
			respondError(c, err)
			return
		} else if ok {
			q.RadiusKm = radius
		}
		if limit, ok, err := optionalInt(c, "limit"); err != nil {
			respondError(c, err)
			return
		} else if ok {
			q.Limit = limit
		}
		if q.IncludeInactive, err = optionalBool(c, "include_inactive"); err != nil {
			respondError(c, err)
			return
		}
		q.ISOCountry = c.Query("iso_country")
		if unit := c.Query("unit"); unit != "" {
			q.Unit = geo.Unit(unit)
		}

		q, err = finder.Normalize(q)
		if err != nil {
			respondError(c, err)
			return
		}

		results, err := finder.FindNearest(ctx, q)
		if err != nil {
			respondError(c, err)
			return
		}
		if results == nil {
			results = []airports.DistanceResult{}
		}

		c.JSON(http.StatusOK, NearestAirportsResponse{
			Query:    q,
			Location: loc,
			Count:    len(results),
			Results:  results,
		})
	}
}

// ResolveLocation returns a handler for GET /api/v1/locations/resolve?q=...
func ResolveLocation(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		loc, err := resolveEnd(c.Request.Context(), resolver, "q", c.Query("q"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, loc)
	}
}

// resolveEnd resolves input and renames argument errors after the request
// parameter the input came from.
func resolveEnd(ctx context.Context, resolver Resolver, param, input string) (resolve.Location, error) {
	loc, err := resolver.Resolve(ctx, input)
	if err == nil {
		return loc, nil
	}
	if apperr.IsInvalidArgument(err) {
		reason := err.Error()
		var argErr *apperr.ArgumentError
		if errors.As(err, &argErr) {
			reason = argErr.Param + " " + argErr.Reason
		}
		return loc, apperr.InvalidArgument(param, input, reason)
	}
	return loc, err
}

func requiredFloat(c *gin.Context, name string) (float64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, apperr.InvalidArgument(name, raw, "is required")
	}
	return parseFloat(name, raw)
}

// optionalFloat reports ok=false when the parameter is absent or blank.
func optionalFloat(c *gin.Context, name string) (v float64, ok bool, err error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, false, nil
	}
	v, err = parseFloat(name, raw)
	return v, err == nil, err
}

func parseFloat(name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperr.InvalidArgument(name, raw, "must be a finite number")
	}
	return v, nil
}

func optionalInt(c *gin.Context, name string) (v int, ok bool, err error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, false, nil
	}
	v, err = strconv.Atoi(raw)
	if err != nil {
		return 0, false, apperr.InvalidArgument(name, raw, "must be an integer")
	}
	return v, true, nil
}

func optionalBool(c *gin.Context, name string) (bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperr.InvalidArgument(name, raw, "must be true or false")
	}
	return v, nil
}
