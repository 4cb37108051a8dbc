// Package airports answers nearest-airport queries over an airport store.
package airports

import (
	"context"
	"strings"

	"github.com/gilby125/fly-or-drive/pkg/geo"
)

// Airport is a read-only airport record owned by the store.
type Airport struct {
	Ident        string          `json:"ident"`
	IATA         string          `json:"iata,omitempty"`
	Name         string          `json:"name"`
	Municipality string          `json:"municipality,omitempty"`
	Location     geo.Coordinates `json:"location"`
	ISOCountry   string          `json:"iso_country"`
	Active       bool            `json:"active"`
}

// DistanceResult is an airport annotated with its distance from the query
// origin. DistanceMi is only set for unit=mi queries.
type DistanceResult struct {
	Airport    Airport  `json:"airport"`
	DistanceKm float64  `json:"distance_km"`
	DistanceMi *float64 `json:"distance_mi,omitempty"`
}

// Query holds the parameters of a nearest-airport lookup. Use
// Finder.DefaultQuery for the configured radius and limit; a zero RadiusKm or
// Limit is rejected like any other non-positive value.
type Query struct {
	Origin          geo.Coordinates `json:"origin"`
	RadiusKm        float64         `json:"radius_km"`
	Limit           int             `json:"limit"`
	ISOCountry      string          `json:"iso_country,omitempty"`
	Unit            geo.Unit        `json:"unit"`
	IncludeInactive bool            `json:"include_inactive,omitempty"`
}

// Filter is the equality part of a store read.
type Filter struct {
	ISOCountry      string
	IncludeInactive bool
}

// Matches applies the filter to a single record.
func (f Filter) Matches(a Airport) bool {
	if !f.IncludeInactive && !a.Active {
		return false
	}
	if f.ISOCountry != "" && !strings.EqualFold(a.ISOCountry, f.ISOCountry) {
		return false
	}
	return true
}

// Store is the read interface the finder needs from an airport data store.
// Implementations must apply the box as an inclusive range filter on
// latitude/longitude and honour the filter; they must never return inactive
// records unless Filter.IncludeInactive is set.
type Store interface {
	QueryAirports(ctx context.Context, box geo.BoundingBox, filter Filter) ([]Airport, error)
}

// Lookup resolves a single airport by IATA code. ok is false when no active
// airport carries the code.
type Lookup interface {
	AirportByIATA(ctx context.Context, iata string) (a Airport, ok bool, err error)
}
