// Package trip estimates driving and flying between two coordinates with
// configurable heuristics. Driving figures are straight-line distance scaled
// by a route factor, not routed road distance.
package trip

import (
	"strings"

	"github.com/gilby125/fly-or-drive/airports"
	"github.com/gilby125/fly-or-drive/pkg/apperr"
	"github.com/gilby125/fly-or-drive/pkg/geo"
)

// Type is one-way or round-trip.
type Type string

const (
	OneWay    Type = "one-way"
	RoundTrip Type = "round-trip"
)

// ParseType accepts "one-way", "round-trip" and the underscore spellings.
// Empty means one-way.
func ParseType(s string) (Type, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-") {
	case "", string(OneWay):
		return OneWay, nil
	case string(RoundTrip):
		return RoundTrip, nil
	}
	return "", apperr.InvalidArgument("trip_type", s, "must be one-way or round-trip")
}

// legs is the number of times the distance is travelled.
func (t Type) legs() float64 {
	if t == RoundTrip {
		return 2
	}
	return 1
}

// Recommendation is the fly-or-drive verdict.
type Recommendation string

const (
	Fly   Recommendation = "fly"
	Drive Recommendation = "drive"
)

// Params describes a trip. Zero numeric fields take the estimator's
// configured defaults. FuelEconomyMPG and FuelPricePerGallon, when set,
// replace their metric counterparts.
type Params struct {
	Origin      geo.Coordinates `json:"origin"`
	Destination geo.Coordinates `json:"destination"`

	RouteFactor          float64 `json:"route_factor,omitempty"`
	AvgSpeedKmh          float64 `json:"avg_speed_kmh,omitempty"`
	FuelEconomyLPer100Km float64 `json:"fuel_economy_l_per_100km,omitempty"`
	FuelPricePerLiter    float64 `json:"fuel_price_per_liter,omitempty"`
	FuelEconomyMPG       float64 `json:"fuel_economy_mpg,omitempty"`
	FuelPricePerGallon   float64 `json:"fuel_price_per_gallon,omitempty"`

	Passengers int      `json:"passengers,omitempty"`
	TripType   Type     `json:"trip_type,omitempty"`
	Unit       geo.Unit `json:"unit,omitempty"`
}

// Estimate is the result of EstimateDriving, extended with Flight and a
// recommendation by EstimateFlyOrDrive.
type Estimate struct {
	Origin      geo.Coordinates `json:"origin"`
	Destination geo.Coordinates `json:"destination"`
	TripType    Type            `json:"trip_type"`
	Passengers  int             `json:"passengers"`
	Currency    string          `json:"currency"`

	DistanceKm        float64 `json:"distance_km"`
	DrivingDistanceKm float64 `json:"driving_distance_km"`
	DrivingTimeHours  float64 `json:"driving_time_hours"`
	FuelCost          float64 `json:"fuel_cost"`

	DistanceMi        *float64 `json:"distance_mi,omitempty"`
	DrivingDistanceMi *float64 `json:"driving_distance_mi,omitempty"`

	Flight         *Flight        `json:"flight,omitempty"`
	Comparison     *Comparison    `json:"comparison,omitempty"`
	Recommendation Recommendation `json:"recommendation,omitempty"`
	Rationale      string         `json:"rationale,omitempty"`
}

// Flight is the flying leg between the airports nearest to each end.
type Flight struct {
	OriginAirport      airports.DistanceResult `json:"origin_airport"`
	DestinationAirport airports.DistanceResult `json:"destination_airport"`
	SameMetro          bool                    `json:"same_metro"`
	FlightDistanceKm   float64                 `json:"flight_distance_km"`
	FlightDistanceMi   *float64                `json:"flight_distance_mi,omitempty"`
	FlightTimeHours    float64                 `json:"flight_time_hours"`
	FlightCost         float64                 `json:"flight_cost"`
}

// Comparison holds whole-trip totals for both modes. Round trips double the
// driving figures and the flight time; FlightCost already includes both legs.
type Comparison struct {
	DriveCost  float64 `json:"drive_cost"`
	DriveHours float64 `json:"drive_hours"`
	FlyCost    float64 `json:"fly_cost"`
	FlyHours   float64 `json:"fly_hours"`
}
