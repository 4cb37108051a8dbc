package geo

import (
	"fmt"
	"math"

	"github.com/gilby125/fly-or-drive/pkg/apperr"
)

const (
	// KmPerDegreeLat approximates the length of one degree of latitude.
	KmPerDegreeLat = 111.0
	// minLonCos bounds the longitude widening near the poles (|lat| > ~84.3).
	minLonCos = 0.1
)

// BoundingBox is a lat/lon rectangle in decimal degrees.
//
// The edges are not clamped or wrapped: near the poles MinLat/MaxLat may leave
// [-90, 90] and near the antimeridian MinLon/MaxLon may leave [-180, 180].
// Stores compare raw column values against the edges, so airports across the
// antimeridian from the origin are not found.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// ComputeBoundingBox returns a rectangle that covers every point within
// radiusKm of origin (no false negatives). It may admit points farther away;
// callers run an exact haversine pass afterwards.
func ComputeBoundingBox(origin Coordinates, radiusKm float64) (BoundingBox, error) {
	if err := origin.Validate(); err != nil {
		return BoundingBox{}, err
	}
	if math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) || radiusKm <= 0 {
		return BoundingBox{}, apperr.InvalidArgument("radius_km", radiusKm, "must be greater than zero")
	}

	dLat, dLon := BoundingBoxDeltas(origin.Lat, radiusKm)
	return BoundingBox{
		MinLat: origin.Lat - dLat,
		MaxLat: origin.Lat + dLat,
		MinLon: origin.Lon - dLon,
		MaxLon: origin.Lon + dLon,
	}, nil
}

// BoundingBoxDeltas returns the degree offsets for radiusKm at latitude lat.
// The cosine is clamped at 0.1 so the longitude delta stays finite at the poles.
func BoundingBoxDeltas(lat, radiusKm float64) (dLat, dLon float64) {
	dLat = radiusKm / KmPerDegreeLat
	dLon = dLat / math.Max(math.Cos(degreesToRadians(lat)), minLonCos)
	return dLat, dLon
}

// Contains reports whether c lies inside the box, edges included.
func (b BoundingBox) Contains(c Coordinates) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

// CrossesAntimeridian reports whether the longitude span leaves [-180, 180].
func (b BoundingBox) CrossesAntimeridian() bool {
	return b.MinLon < -180 || b.MaxLon > 180
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%.4f,%.4f]x[%.4f,%.4f]", b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
}
