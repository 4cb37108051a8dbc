package airports

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/gilby125/fly-or-drive/config"
	"github.com/gilby125/fly-or-drive/pkg/apperr"
	"github.com/gilby125/fly-or-drive/pkg/geo"
	"github.com/gilby125/fly-or-drive/pkg/logger"
)

// Finder runs nearest-airport queries: bounding-box prefilter, one store
// read, exact haversine, radius and country filter, sort, truncate. It keeps no state
// between calls and is safe for concurrent use.
type Finder struct {
	store        Store
	search       config.SearchConfig
	storeTimeout time.Duration
	log          *logger.Logger
}

// FinderOption customises a Finder.
type FinderOption func(*Finder)

// WithLogger sets the logger used for skipped-candidate warnings.
func WithLogger(l *logger.Logger) FinderOption {
	return func(f *Finder) { f.log = l }
}

// WithStoreTimeout bounds each store read. Zero disables the finder's own
// deadline and relies on the caller's context.
func WithStoreTimeout(d time.Duration) FinderOption {
	return func(f *Finder) { f.storeTimeout = d }
}

// NewFinder creates a finder over store using the given query defaults.
func NewFinder(store Store, search config.SearchConfig, opts ...FinderOption) *Finder {
	f := &Finder{
		store:        store,
		search:       search,
		storeTimeout: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		f.log = logger.Default()
	}
	return f
}

// DefaultQuery returns a query at origin carrying the configured radius and
// limit. Transports start from it and override only the parameters the
// caller actually sent.
func (f *Finder) DefaultQuery(origin geo.Coordinates) Query {
	return Query{
		Origin:   origin,
		RadiusKm: f.search.DefaultRadiusKm,
		Limit:    f.search.DefaultLimit,
		Unit:     geo.Kilometers,
	}
}

// Normalize validates q without touching the store. RadiusKm must be
// positive and Limit at least 1; a limit above the configured maximum is
// clamped to it.
func (f *Finder) Normalize(q Query) (Query, error) {
	if err := q.Origin.Validate(); err != nil {
		return q, err
	}

	if math.IsNaN(q.RadiusKm) || math.IsInf(q.RadiusKm, 0) || q.RadiusKm <= 0 {
		return q, apperr.InvalidArgument("radius_km", q.RadiusKm, "must be greater than zero")
	}

	if q.Limit < 1 {
		return q, apperr.InvalidArgument("limit", q.Limit, "must be at least 1")
	}
	if f.search.MaxLimit > 0 && q.Limit > f.search.MaxLimit {
		q.Limit = f.search.MaxLimit
	}

	unit, err := geo.ParseUnit(string(q.Unit))
	if err != nil {
		return q, err
	}
	q.Unit = unit

	q.ISOCountry = strings.ToUpper(strings.TrimSpace(q.ISOCountry))
	if q.ISOCountry != "" && !isAlpha2(q.ISOCountry) {
		return q, apperr.InvalidArgument("iso_country", q.ISOCountry, "must be a two-letter ISO 3166-1 code")
	}
	return q, nil
}

// FindNearest returns at most q.Limit airports ordered by ascending distance
// (ties by ident). An empty slice means nothing lies inside the search area.
func (f *Finder) FindNearest(ctx context.Context, q Query) ([]DistanceResult, error) {
	q, err := f.Normalize(q)
	if err != nil {
		return nil, err
	}

	box, err := geo.ComputeBoundingBox(q.Origin, q.RadiusKm)
	if err != nil {
		return nil, err
	}

	filter := Filter{ISOCountry: q.ISOCountry, IncludeInactive: q.IncludeInactive}
	candidates, err := f.queryStore(ctx, box, filter)
	if err != nil {
		return nil, err
	}

	log := f.log.WithContext(ctx)
	results := make([]DistanceResult, 0, len(candidates))
	for _, c := range candidates {
		if err := c.Location.Validate(); err != nil {
			log.Warn("skipping airport with malformed coordinates",
				"ident", c.Ident, "lat", c.Location.Lat, "lon", c.Location.Lon, "error", err)
			continue
		}
		// The store is trusted for the range filter only.
		if !filter.Matches(c) {
			continue
		}
		km := geo.DistanceKm(q.Origin, c.Location)
		if km > q.RadiusKm {
			// Box corners reach past the radius.
			continue
		}
		results = append(results, newDistanceResult(c, km, q.Unit))
	}

	SortResults(results)
	if len(results) > q.Limit {
		results = results[:q.Limit]
	}

	log.Debug("nearest airports resolved",
		"origin", q.Origin, "radius_km", q.RadiusKm, "box", box.String(),
		"candidates", len(candidates), "returned", len(results))
	return results, nil
}

func (f *Finder) queryStore(ctx context.Context, box geo.BoundingBox, filter Filter) ([]Airport, error) {
	if f.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.storeTimeout)
		defer cancel()
	}

	candidates, err := f.store.QueryAirports(ctx, box, filter)
	if err != nil {
		if apperr.IsStorageUnavailable(err) {
			return nil, err
		}
		return nil, apperr.StorageUnavailable("query airports", err)
	}
	// A store that ignored cancellation must not leak results past the deadline.
	if err := ctx.Err(); err != nil {
		return nil, apperr.StorageUnavailable("query airports", err)
	}
	return candidates, nil
}

func newDistanceResult(a Airport, km float64, unit geo.Unit) DistanceResult {
	r := DistanceResult{Airport: a, DistanceKm: km}
	if unit == geo.Miles {
		mi := geo.KmToMiles(km)
		r.DistanceMi = &mi
	}
	return r
}

// SortResults orders results by ascending DistanceKm, then ident.
func SortResults(results []DistanceResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].DistanceKm != results[j].DistanceKm {
			return results[i].DistanceKm < results[j].DistanceKm
		}
		return results[i].Airport.Ident < results[j].Airport.Ident
	})
}

func isAlpha2(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
