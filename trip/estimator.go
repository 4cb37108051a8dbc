package trip

import (
	"context"
	"errors"
	"math"

	"github.com/gilby125/fly-or-drive/airports"
	"github.com/gilby125/fly-or-drive/config"
	"github.com/gilby125/fly-or-drive/pkg/apperr"
	"github.com/gilby125/fly-or-drive/pkg/geo"
	"github.com/gilby125/fly-or-drive/pkg/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
)

// AirportFinder is the part of airports.Finder the estimator uses.
type AirportFinder interface {
	FindNearest(ctx context.Context, q airports.Query) ([]airports.DistanceResult, error)
}

// Estimator produces driving estimates and fly-or-drive comparisons. It is
// stateless between calls.
type Estimator struct {
	cfg    config.EstimatorConfig
	finder AirportFinder
	format formatter
	log    *logger.Logger
}

// Option customises an Estimator.
type Option func(*Estimator)

// WithLogger sets the estimator's logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Estimator) { e.log = l }
}

// WithLanguage sets the language used to format rationales.
func WithLanguage(tag language.Tag) Option {
	return func(e *Estimator) { e.format = newFormatter(e.cfg.Currency, tag) }
}

// NewEstimator builds an estimator. finder may be nil when only
// EstimateDriving is used.
func NewEstimator(cfg config.EstimatorConfig, finder AirportFinder, opts ...Option) *Estimator {
	e := &Estimator{
		cfg:    cfg,
		finder: finder,
		format: newFormatter(cfg.Currency, language.English),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Default()
	}
	return e
}

// Config returns the heuristics in use.
func (e *Estimator) Config() config.EstimatorConfig {
	return e.cfg
}

// Normalize validates p and fills every zero field from configuration.
// Imperial fuel inputs are converted to their metric counterparts.
func (e *Estimator) Normalize(p Params) (Params, error) {
	if err := validateEnd("origin", p.Origin); err != nil {
		return p, err
	}
	if err := validateEnd("destination", p.Destination); err != nil {
		return p, err
	}

	var err error
	if p.RouteFactor, err = orDefault("route_factor", p.RouteFactor, e.cfg.RouteFactor); err != nil {
		return p, err
	}
	if p.AvgSpeedKmh, err = orDefault("avg_speed_kmh", p.AvgSpeedKmh, e.cfg.AvgSpeedKmh); err != nil {
		return p, err
	}

	if p.FuelEconomyMPG != 0 {
		if p.FuelEconomyLPer100Km, err = geo.MPGToLPer100Km(p.FuelEconomyMPG); err != nil {
			return p, err
		}
	}
	if p.FuelEconomyLPer100Km, err = orDefault("fuel_economy_l_per_100km", p.FuelEconomyLPer100Km, e.cfg.FuelEconomyLPer100Km); err != nil {
		return p, err
	}

	if p.FuelPricePerGallon != 0 {
		if !finitePositive(p.FuelPricePerGallon) {
			return p, apperr.InvalidArgument("fuel_price_per_gallon", p.FuelPricePerGallon, "must be a positive number")
		}
		p.FuelPricePerLiter = p.FuelPricePerGallon / geo.LitersPerGallon
	}
	if p.FuelPricePerLiter, err = orDefault("fuel_price_per_liter", p.FuelPricePerLiter, e.cfg.FuelPricePerLiter); err != nil {
		return p, err
	}

	switch {
	case p.Passengers == 0:
		p.Passengers = 1
	case p.Passengers < 0:
		return p, apperr.InvalidArgument("passengers", p.Passengers, "must be at least 1")
	}

	if p.TripType, err = ParseType(string(p.TripType)); err != nil {
		return p, err
	}
	if p.Unit, err = geo.ParseUnit(string(p.Unit)); err != nil {
		return p, err
	}
	return p, nil
}

// EstimateDriving computes straight-line distance, route-factor driving
// distance, driving time and one-way fuel cost.
func (e *Estimator) EstimateDriving(p Params) (Estimate, error) {
	p, err := e.Normalize(p)
	if err != nil {
		return Estimate{}, err
	}
	return e.driving(p), nil
}

func (e *Estimator) driving(p Params) Estimate {
	distance := geo.DistanceKm(p.Origin, p.Destination)
	driving := distance * p.RouteFactor

	est := Estimate{
		Origin:            p.Origin,
		Destination:       p.Destination,
		TripType:          p.TripType,
		Passengers:        p.Passengers,
		Currency:          e.format.unit.String(),
		DistanceKm:        distance,
		DrivingDistanceKm: driving,
		DrivingTimeHours:  driving / p.AvgSpeedKmh,
		FuelCost:          driving / 100 * p.FuelEconomyLPer100Km * p.FuelPricePerLiter,
	}
	if p.Unit == geo.Miles {
		est.DistanceMi = miles(distance)
		est.DrivingDistanceMi = miles(driving)
	}
	return est
}

// EstimateFlyOrDrive extends the driving estimate with a flight between the
// airports nearest to each end and recommends one mode. The two airport
// lookups run concurrently; if either fails the whole estimate fails.
func (e *Estimator) EstimateFlyOrDrive(ctx context.Context, p Params) (Estimate, error) {
	p, err := e.Normalize(p)
	if err != nil {
		return Estimate{}, err
	}
	if e.finder == nil {
		return Estimate{}, errors.New("fly-or-drive estimate needs an airport finder")
	}
	est := e.driving(p)

	var from, to []airports.DistanceResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		from, err = e.finder.FindNearest(gctx, e.airportQuery(p.Origin, p.Unit))
		return err
	})
	g.Go(func() error {
		var err error
		to, err = e.finder.FindNearest(gctx, e.airportQuery(p.Destination, p.Unit))
		return err
	})
	if err := g.Wait(); err != nil {
		return Estimate{}, err
	}

	switch {
	case len(from) == 0:
		est.Recommendation = Drive
		est.Rationale = e.format.sprintf("No airport within %s of the origin; driving is the only option.",
			e.format.km(e.cfg.AirportSearchRadiusKm))
		return est, nil
	case len(to) == 0:
		est.Recommendation = Drive
		est.Rationale = e.format.sprintf("No airport within %s of the destination; driving is the only option.",
			e.format.km(e.cfg.AirportSearchRadiusKm))
		return est, nil
	}

	flight := e.flight(p, from[0], to[0])
	est.Flight = &flight

	legs := p.TripType.legs()
	cmp := Comparison{
		DriveCost:  est.FuelCost * legs,
		DriveHours: est.DrivingTimeHours * legs,
		FlyCost:    flight.FlightCost,
		FlyHours:   flight.FlightTimeHours * legs,
	}
	est.Comparison = &cmp
	est.Recommendation, est.Rationale = e.recommend(flight, cmp)

	e.log.WithContext(ctx).Debug("Fly-or-drive estimate",
		"origin_airport", flight.OriginAirport.Airport.Ident,
		"destination_airport", flight.DestinationAirport.Airport.Ident,
		"recommendation", est.Recommendation)
	return est, nil
}

func (e *Estimator) airportQuery(c geo.Coordinates, unit geo.Unit) airports.Query {
	return airports.Query{Origin: c, RadiusKm: e.cfg.AirportSearchRadiusKm, Limit: 1, Unit: unit}
}

func (e *Estimator) flight(p Params, from, to airports.DistanceResult) Flight {
	distance := geo.DistanceKm(from.Airport.Location, to.Airport.Location)
	sameMetro := distance < e.cfg.MetroRadiusKm

	hours := distance/e.cfg.CruiseSpeedKmh + e.cfg.FlightBufferHours
	if !sameMetro {
		hours += e.cfg.LayoverPenaltyHours
	}

	f := Flight{
		OriginAirport:      from,
		DestinationAirport: to,
		SameMetro:          sameMetro,
		FlightDistanceKm:   distance,
		FlightTimeHours:    hours,
		FlightCost:         distance * e.cfg.FarePerKm * float64(p.Passengers) * p.TripType.legs(),
	}
	if p.Unit == geo.Miles {
		f.FlightDistanceMi = miles(distance)
	}
	return f
}

// recommend picks drive when it is cheaper by more than CostThreshold, or
// when flying is neither cheaper nor faster by more than the thresholds; the
// rationale for the latter says whether driving is clearly faster or the two
// are comparable. Otherwise it picks fly.
func (e *Estimator) recommend(f Flight, c Comparison) (Recommendation, string) {
	if f.SameMetro {
		return Drive, e.format.sprintf("Both ends are served by the same airport area (%s and %s); flying saves nothing.",
			airportLabel(f.OriginAirport.Airport), airportLabel(f.DestinationAirport.Airport))
	}

	costDelta := c.FlyCost - c.DriveCost   // > 0: driving is cheaper
	timeDelta := c.DriveHours - c.FlyHours // > 0: flying is faster

	if costDelta > e.cfg.CostThreshold {
		return Drive, e.format.sprintf("Driving is cheaper by %s (%s fuel vs %s airfare).",
			e.format.money(costDelta), e.format.money(c.DriveCost), e.format.money(c.FlyCost))
	}
	if costDelta >= -e.cfg.CostThreshold && timeDelta <= e.cfg.TimeThresholdHours {
		if timeDelta < -e.cfg.TimeThresholdHours {
			return Drive, e.format.sprintf("Driving is faster by %s at similar cost (%s vs %s flying).",
				e.format.hours(timeDelta), e.format.hours(c.DriveHours), e.format.hours(c.FlyHours))
		}
		return Drive, e.format.sprintf("Cost and time are comparable (%s and %s apart); driving is the default.",
			e.format.money(costDelta), e.format.hours(timeDelta))
	}
	if timeDelta > e.cfg.TimeThresholdHours {
		return Fly, e.format.sprintf("Flying saves about %s (%s vs %s driving) via %s to %s.",
			e.format.hours(timeDelta), e.format.hours(c.FlyHours), e.format.hours(c.DriveHours),
			airportLabel(f.OriginAirport.Airport), airportLabel(f.DestinationAirport.Airport))
	}
	return Fly, e.format.sprintf("Flying is cheaper by %s (%s airfare vs %s fuel).",
		e.format.money(costDelta), e.format.money(c.FlyCost), e.format.money(c.DriveCost))
}

func airportLabel(a airports.Airport) string {
	if a.IATA != "" {
		return a.IATA
	}
	return a.Ident
}

func validateEnd(name string, c geo.Coordinates) error {
	if c.IsValid() {
		return nil
	}
	return apperr.InvalidArgument(name, c, "latitude must be in [-90, 90] and longitude in [-180, 180]")
}

func orDefault(param string, v, def float64) (float64, error) {
	if v == 0 {
		return def, nil
	}
	if !finitePositive(v) {
		return 0, apperr.InvalidArgument(param, v, "must be a positive number")
	}
	return v, nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func miles(km float64) *float64 {
	mi := geo.KmToMiles(km)
	return &mi
}
