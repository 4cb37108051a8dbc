// Package geo provides geographic distance calculations, unit conversions and
// the bounding-box prefilter used by nearest-airport queries.
package geo

import (
	"math"

	"github.com/gilby125/fly-or-drive/pkg/apperr"
)

const (
	// EarthRadiusKm is the mean radius of Earth in kilometers.
	EarthRadiusKm = 6371.0
)

// Coordinates represents a geographic point in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// HaversineKm calculates the great-circle distance in kilometers between two
// points given in decimal degrees, on a spherical Earth.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	return HaversineWithRadius(lat1, lon1, lat2, lon2, EarthRadiusKm)
}

// HaversineWithRadius calculates the great-circle distance using a custom radius.
func HaversineWithRadius(lat1, lon1, lat2, lon2, radius float64) float64 {
	lat1Rad := degreesToRadians(lat1)
	lat2Rad := degreesToRadians(lat2)
	deltaLat := degreesToRadians(lat2 - lat1)
	deltaLon := degreesToRadians(lon2 - lon1)

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	// Rounding can push a a hair past 1 for antipodal points.
	a = math.Min(math.Max(a, 0), 1)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return radius * c
}

// DistanceKm calculates the distance in kilometers between two coordinate points.
// Ranges are not checked here; validate at the boundary with Validate.
func DistanceKm(from, to Coordinates) float64 {
	return HaversineKm(from.Lat, from.Lon, to.Lat, to.Lon)
}

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// IsValid returns true if the coordinates are within valid ranges.
// Latitude must be between -90 and 90, longitude between -180 and 180.
func (c Coordinates) IsValid() bool {
	return c.Validate() == nil
}

// Validate returns an InvalidArgument error naming the first out-of-range
// component. NaN is rejected as well.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return apperr.InvalidArgument("lat", c.Lat, "latitude must be within [-90, 90]")
	}
	if math.IsNaN(c.Lon) || c.Lon < -180 || c.Lon > 180 {
		return apperr.InvalidArgument("lon", c.Lon, "longitude must be within [-180, 180]")
	}
	return nil
}

// IsZero returns true if both coordinates are zero (likely unset).
func (c Coordinates) IsZero() bool {
	return c.Lat == 0 && c.Lon == 0
}
