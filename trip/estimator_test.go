package trip

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/gilby125/fly-or-drive/airports"
	"github.com/gilby125/fly-or-drive/config"
	"github.com/gilby125/fly-or-drive/db"
	"github.com/gilby125/fly-or-drive/pkg/apperr"
	"github.com/gilby125/fly-or-drive/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

var (
	nyc            = geo.Coordinates{Lat: 40.7128, Lon: -74.0060}
	la             = geo.Coordinates{Lat: 34.0522, Lon: -118.2437}
	denverDowntown = geo.Coordinates{Lat: 39.7392, Lon: -104.9903}
	coloradoSprs   = geo.Coordinates{Lat: 38.8339, Lon: -104.8214}
)

// finderFunc adapts a function to AirportFinder.
type finderFunc func(ctx context.Context, q airports.Query) ([]airports.DistanceResult, error)

func (f finderFunc) FindNearest(ctx context.Context, q airports.Query) ([]airports.DistanceResult, error) {
	return f(ctx, q)
}

func sampleFinder() *airports.Finder {
	return airports.NewFinder(db.NewMemoryStore(db.SampleAirports), config.DefaultSearchConfig())
}

func newTestEstimator(cfg config.EstimatorConfig, finder AirportFinder) *Estimator {
	return NewEstimator(cfg, finder)
}

func TestEstimateDriving_NewYorkToLosAngeles(t *testing.T) {
	e := newTestEstimator(config.DefaultEstimatorConfig(), nil)

	est, err := e.EstimateDriving(Params{Origin: nyc, Destination: la})
	require.NoError(t, err)

	// Reference figures 3944 / 4733 / 59.16 / 532.46 sit about 0.2% above
	// the R=6371 haversine, hence the tolerances.
	assert.InDelta(t, 3944, est.DistanceKm, 10)
	assert.InDelta(t, 4733, est.DrivingDistanceKm, 12)
	assert.InDelta(t, 59.16, est.DrivingTimeHours, 0.15)
	assert.InDelta(t, 532.46, est.FuelCost, 1.5)

	assert.InDelta(t, est.DistanceKm*1.2, est.DrivingDistanceKm, 1e-9)
	assert.InDelta(t, est.DrivingDistanceKm/80, est.DrivingTimeHours, 1e-9)
	assert.InDelta(t, est.DrivingDistanceKm/100*7.5*1.5, est.FuelCost, 1e-9)

	assert.Equal(t, OneWay, est.TripType)
	assert.Equal(t, 1, est.Passengers)
	assert.Equal(t, "USD", est.Currency)
	assert.Nil(t, est.DistanceMi)
	assert.Nil(t, est.Flight)
	assert.Empty(t, est.Recommendation)
}

func TestEstimateDriving_ParameterOverrides(t *testing.T) {
	e := newTestEstimator(config.DefaultEstimatorConfig(), nil)

	base, err := e.EstimateDriving(Params{Origin: nyc, Destination: la})
	require.NoError(t, err)

	est, err := e.EstimateDriving(Params{
		Origin:               nyc,
		Destination:          la,
		RouteFactor:          1.5,
		AvgSpeedKmh:          100,
		FuelEconomyLPer100Km: 5,
		FuelPricePerLiter:    2,
	})
	require.NoError(t, err)
	assert.InDelta(t, base.DistanceKm, est.DistanceKm, 1e-9)
	assert.InDelta(t, base.DistanceKm*1.5, est.DrivingDistanceKm, 1e-9)
	assert.InDelta(t, est.DrivingDistanceKm/100, est.DrivingTimeHours, 1e-9)
	assert.InDelta(t, est.DrivingDistanceKm/100*5*2, est.FuelCost, 1e-9)
}

func TestEstimateDriving_ImperialInputsAndMiles(t *testing.T) {
	e := newTestEstimator(config.DefaultEstimatorConfig(), nil)

	est, err := e.EstimateDriving(Params{
		Origin:             nyc,
		Destination:        la,
		FuelEconomyMPG:     30,
		FuelPricePerGallon: 3.78541,
		Unit:               geo.Miles,
	})
	require.NoError(t, err)

	require.NotNil(t, est.DistanceMi)
	require.NotNil(t, est.DrivingDistanceMi)
	assert.InDelta(t, est.DistanceKm/1.60934, *est.DistanceMi, 1e-9)
	assert.InDelta(t, est.DrivingDistanceKm/1.60934, *est.DrivingDistanceMi, 1e-9)
	// 30 MPG is 7.8405 L/100km; 3.78541 per gallon is 1.00 per liter.
	assert.InDelta(t, est.DrivingDistanceKm/100*(235.214/30)*1.0, est.FuelCost, 1e-6)
}

func TestEstimateDriving_IdenticalPoints(t *testing.T) {
	e := newTestEstimator(config.DefaultEstimatorConfig(), nil)

	est, err := e.EstimateDriving(Params{Origin: nyc, Destination: nyc})
	require.NoError(t, err)
	assert.Zero(t, est.DistanceKm)
	assert.Zero(t, est.DrivingTimeHours)
	assert.Zero(t, est.FuelCost)
}

func TestEstimateDriving_InvalidArguments(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		param  string
	}{
		{"origin out of range", Params{Origin: geo.Coordinates{Lat: 91}, Destination: la}, "origin"},
		{"destination out of range", Params{Origin: nyc, Destination: geo.Coordinates{Lon: 200}}, "destination"},
		{"negative route factor", Params{Origin: nyc, Destination: la, RouteFactor: -1}, "route_factor"},
		{"NaN speed", Params{Origin: nyc, Destination: la, AvgSpeedKmh: math.NaN()}, "avg_speed_kmh"},
		{"negative fuel economy", Params{Origin: nyc, Destination: la, FuelEconomyLPer100Km: -7}, "fuel_economy_l_per_100km"},
		{"negative MPG", Params{Origin: nyc, Destination: la, FuelEconomyMPG: -30}, "fuel_economy_mpg"},
		{"infinite fuel price", Params{Origin: nyc, Destination: la, FuelPricePerLiter: math.Inf(1)}, "fuel_price_per_liter"},
		{"negative gallon price", Params{Origin: nyc, Destination: la, FuelPricePerGallon: -4}, "fuel_price_per_gallon"},
		{"negative passengers", Params{Origin: nyc, Destination: la, Passengers: -2}, "passengers"},
		{"unknown trip type", Params{Origin: nyc, Destination: la, TripType: "multi-city"}, "trip_type"},
		{"unknown unit", Params{Origin: nyc, Destination: la, Unit: "nm"}, "unit"},
	}

	e := newTestEstimator(config.DefaultEstimatorConfig(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.EstimateDriving(tt.params)
			require.True(t, apperr.IsInvalidArgument(err), "got %v", err)
			var argErr *apperr.ArgumentError
			require.ErrorAs(t, err, &argErr)
			assert.Equal(t, tt.param, argErr.Param)
		})
	}
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{"": OneWay, "one-way": OneWay, "ROUND_TRIP": RoundTrip, " round-trip ": RoundTrip} {
		got, err := ParseType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseType("open-jaw")
	assert.True(t, apperr.IsInvalidArgument(err))
}

func TestEstimateFlyOrDrive_LongHaulRecommendsFlying(t *testing.T) {
	e := newTestEstimator(config.DefaultEstimatorConfig(), sampleFinder())

	est, err := e.EstimateFlyOrDrive(context.Background(), Params{Origin: nyc, Destination: la})
	require.NoError(t, err)
	require.NotNil(t, est.Flight)
	require.NotNil(t, est.Comparison)

	assert.Equal(t, "KLGA", est.Flight.OriginAirport.Airport.Ident)
	assert.Equal(t, "KLAX", est.Flight.DestinationAirport.Airport.Ident)
	assert.False(t, est.Flight.SameMetro)
	assert.InDelta(t, 3965.3, est.Flight.FlightDistanceKm, 0.5)
	// distance / 800 + 1.5 buffer + 1.0 layover
	assert.InDelta(t, est.Flight.FlightDistanceKm/800+2.5, est.Flight.FlightTimeHours, 1e-9)
	assert.InDelta(t, est.Flight.FlightDistanceKm*0.12, est.Flight.FlightCost, 1e-9)

	assert.Equal(t, Fly, est.Recommendation)
	assert.Contains(t, est.Rationale, "Flying saves about")
	assert.Contains(t, est.Rationale, "LGA")
	assert.Contains(t, est.Rationale, "LAX")
}

func TestEstimateFlyOrDrive_ShortHopPrefersDriving(t *testing.T) {
	e := newTestEstimator(config.DefaultEstimatorConfig(), sampleFinder())

	est, err := e.EstimateFlyOrDrive(context.Background(), Params{Origin: denverDowntown, Destination: coloradoSprs})
	require.NoError(t, err)
	require.NotNil(t, est.Flight)

	assert.Equal(t, "KBJC", est.Flight.OriginAirport.Airport.Ident)
	assert.Equal(t, "KCOS", est.Flight.DestinationAirport.Airport.Ident)
	assert.Equal(t, Drive, est.Recommendation)
	// About 1.5 h by road against 2.7 h door to door by air.
	assert.Contains(t, est.Rationale, "Driving is faster by 1.1 h")
}

func TestRecommend_DriveRationales(t *testing.T) {
	e := newTestEstimator(config.DefaultEstimatorConfig(), nil)

	tests := []struct {
		name      string
		cmp       Comparison
		rationale string
	}{
		{
			name:      "driving much faster at similar cost",
			cmp:       Comparison{DriveCost: 100, DriveHours: 2, FlyCost: 90, FlyHours: 12},
			rationale: "Driving is faster by 10.0 h at similar cost (2.0 h vs 12.0 h flying).",
		},
		{
			name:      "cost and time within thresholds",
			cmp:       Comparison{DriveCost: 100, DriveHours: 3, FlyCost: 90, FlyHours: 2.5},
			rationale: "Cost and time are comparable ($10.00 and 0.5 h apart); driving is the default.",
		},
		{
			name:      "driving cheaper",
			cmp:       Comparison{DriveCost: 40, DriveHours: 20, FlyCost: 400, FlyHours: 5},
			rationale: "Driving is cheaper by $360.00 ($40.00 fuel vs $400.00 airfare).",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, rationale := e.recommend(Flight{}, tt.cmp)
			assert.Equal(t, Drive, rec)
			assert.Equal(t, tt.rationale, rationale)
		})
	}
}

func TestEstimateFlyOrDrive_DrivingMuchCheaper(t *testing.T) {
	cfg := config.DefaultEstimatorConfig()
	cfg.FarePerKm = 1.0
	e := newTestEstimator(cfg, sampleFinder())

	est, err := e.EstimateFlyOrDrive(context.Background(), Params{Origin: nyc, Destination: la})
	require.NoError(t, err)
	assert.Equal(t, Drive, est.Recommendation)
	assert.Contains(t, est.Rationale, "Driving is cheaper by")
	assert.Greater(t, est.Comparison.FlyCost-est.Comparison.DriveCost, cfg.CostThreshold)
}

func TestEstimateFlyOrDrive_FlyingCheaperButNotFaster(t *testing.T) {
	cfg := config.DefaultEstimatorConfig()
	cfg.FarePerKm = 0.01
	cfg.AvgSpeedKmh = 1000
	e := newTestEstimator(cfg, sampleFinder())

	est, err := e.EstimateFlyOrDrive(context.Background(), Params{Origin: nyc, Destination: la})
	require.NoError(t, err)
	assert.Equal(t, Fly, est.Recommendation)
	assert.Contains(t, est.Rationale, "Flying is cheaper by")
}

func TestEstimateFlyOrDrive_RoundTripAndPassengers(t *testing.T) {
	e := newTestEstimator(config.DefaultEstimatorConfig(), sampleFinder())

	one, err := e.EstimateFlyOrDrive(context.Background(), Params{Origin: nyc, Destination: la})
	require.NoError(t, err)
	round, err := e.EstimateFlyOrDrive(context.Background(), Params{
		Origin: nyc, Destination: la, TripType: RoundTrip, Passengers: 3,
	})
	require.NoError(t, err)

	assert.InDelta(t, one.Flight.FlightCost*6, round.Flight.FlightCost, 1e-6)
	assert.InDelta(t, one.FuelCost, round.FuelCost, 1e-9, "fuel cost stays one-way")
	assert.InDelta(t, one.FuelCost*2, round.Comparison.DriveCost, 1e-9)
	assert.InDelta(t, one.DrivingTimeHours*2, round.Comparison.DriveHours, 1e-9)
	assert.InDelta(t, one.Flight.FlightTimeHours*2, round.Comparison.FlyHours, 1e-9)
	assert.Equal(t, 3, round.Passengers)
}

func TestEstimateFlyOrDrive_MilesOnFlight(t *testing.T) {
	e := newTestEstimator(config.DefaultEstimatorConfig(), sampleFinder())

	est, err := e.EstimateFlyOrDrive(context.Background(), Params{Origin: nyc, Destination: la, Unit: geo.Miles})
	require.NoError(t, err)
	require.NotNil(t, est.Flight.FlightDistanceMi)
	assert.InDelta(t, geo.KmToMiles(est.Flight.FlightDistanceKm), *est.Flight.FlightDistanceMi, 1e-9)
	require.NotNil(t, est.Flight.OriginAirport.DistanceMi)
}

func TestEstimateFlyOrDrive_SameMetro(t *testing.T) {
	hub := airports.DistanceResult{Airport: airports.Airport{
		Ident: "KDEN", IATA: "DEN", Location: geo.Coordinates{Lat: 39.861698, Lon: -104.672997}, ISOCountry: "US", Active: true,
	}}
	finder := finderFunc(func(ctx context.Context, q airports.Query) ([]airports.DistanceResult, error) {
		return []airports.DistanceResult{hub}, nil
	})
	e := newTestEstimator(config.DefaultEstimatorConfig(), finder)

	est, err := e.EstimateFlyOrDrive(context.Background(), Params{
		Origin:      denverDowntown,
		Destination: geo.Coordinates{Lat: 39.7294, Lon: -104.8319},
	})
	require.NoError(t, err)
	require.NotNil(t, est.Flight)
	assert.True(t, est.Flight.SameMetro)
	assert.Zero(t, est.Flight.FlightDistanceKm)
	// Buffer only, no layover penalty.
	assert.InDelta(t, 1.5, est.Flight.FlightTimeHours, 1e-9)
	assert.Equal(t, Drive, est.Recommendation)
	assert.Contains(t, est.Rationale, "same airport area")
}

func TestEstimateFlyOrDrive_NoAirportNearDestination(t *testing.T) {
	finder := finderFunc(func(ctx context.Context, q airports.Query) ([]airports.DistanceResult, error) {
		if q.Origin == la {
			return []airports.DistanceResult{}, nil
		}
		return []airports.DistanceResult{{Airport: airports.Airport{Ident: "KLGA", Active: true}}}, nil
	})
	e := newTestEstimator(config.DefaultEstimatorConfig(), finder)

	est, err := e.EstimateFlyOrDrive(context.Background(), Params{Origin: nyc, Destination: la})
	require.NoError(t, err)
	assert.Nil(t, est.Flight)
	assert.Nil(t, est.Comparison)
	assert.Equal(t, Drive, est.Recommendation)
	assert.Contains(t, est.Rationale, "destination")
	assert.Greater(t, est.FuelCost, 0.0)
}

func TestEstimateFlyOrDrive_LookupQueries(t *testing.T) {
	var (
		mu      sync.Mutex
		queries []airports.Query
	)
	finder := finderFunc(func(ctx context.Context, q airports.Query) ([]airports.DistanceResult, error) {
		mu.Lock()
		queries = append(queries, q)
		mu.Unlock()
		return nil, nil
	})
	e := newTestEstimator(config.DefaultEstimatorConfig(), finder)

	_, err := e.EstimateFlyOrDrive(context.Background(), Params{Origin: nyc, Destination: la, Unit: geo.Miles})
	require.NoError(t, err)
	require.Len(t, queries, 2)
	for _, q := range queries {
		assert.Equal(t, 1, q.Limit)
		assert.Equal(t, 2000.0, q.RadiusKm)
		assert.Equal(t, geo.Miles, q.Unit)
	}
	assert.ElementsMatch(t, []geo.Coordinates{nyc, la}, []geo.Coordinates{queries[0].Origin, queries[1].Origin})
}

func TestEstimateFlyOrDrive_LookupsRunConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(2)
	both := make(chan struct{})
	go func() {
		started.Wait()
		close(both)
	}()

	finder := finderFunc(func(ctx context.Context, q airports.Query) ([]airports.DistanceResult, error) {
		started.Done()
		select {
		case <-both:
			return nil, nil
		case <-time.After(2 * time.Second):
			return nil, errors.New("lookups were serialised")
		}
	})
	e := newTestEstimator(config.DefaultEstimatorConfig(), finder)

	_, err := e.EstimateFlyOrDrive(context.Background(), Params{Origin: nyc, Destination: la})
	assert.NoError(t, err)
}

func TestEstimateFlyOrDrive_StorageFailurePropagates(t *testing.T) {
	cause := errors.New("store down")
	finder := finderFunc(func(ctx context.Context, q airports.Query) ([]airports.DistanceResult, error) {
		if q.Origin == la {
			return nil, apperr.StorageUnavailable("query airports", cause)
		}
		<-ctx.Done()
		return nil, ctx.Err()
	})
	e := newTestEstimator(config.DefaultEstimatorConfig(), finder)

	est, err := e.EstimateFlyOrDrive(context.Background(), Params{Origin: nyc, Destination: la})
	assert.True(t, apperr.IsStorageUnavailable(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, Estimate{}, est)
}

func TestEstimateFlyOrDrive_InvalidArgumentSkipsLookups(t *testing.T) {
	called := false
	finder := finderFunc(func(ctx context.Context, q airports.Query) ([]airports.DistanceResult, error) {
		called = true
		return nil, nil
	})
	e := newTestEstimator(config.DefaultEstimatorConfig(), finder)

	_, err := e.EstimateFlyOrDrive(context.Background(), Params{Origin: nyc, Destination: la, Passengers: -1})
	assert.True(t, apperr.IsInvalidArgument(err))
	assert.False(t, called)
}

func TestEstimateFlyOrDrive_RequiresFinder(t *testing.T) {
	e := newTestEstimator(config.DefaultEstimatorConfig(), nil)
	_, err := e.EstimateFlyOrDrive(context.Background(), Params{Origin: nyc, Destination: la})
	assert.Error(t, err)
}

func TestFormatter(t *testing.T) {
	f := newFormatter("EUR", language.English)
	assert.Equal(t, "€12.50", f.money(-12.5))
	assert.Equal(t, "$10.00", newFormatter("USD", language.English).money(10))
	assert.Regexp(t, `^¥1,?235$`, newFormatter("JPY", language.English).money(1235))
	assert.Equal(t, "2.5 h", f.hours(-2.46))
	assert.Regexp(t, `^2,?000 km$`, f.km(2000))

	fallback := newFormatter("not-a-code", language.English)
	assert.Equal(t, "USD", fallback.unit.String())
}
