package airports

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/gilby125/fly-or-drive/pkg/cache"
	"github.com/gilby125/fly-or-drive/pkg/geo"
	"github.com/gilby125/fly-or-drive/pkg/logger"
)

// gridStep is the snapping resolution of cached boxes (~1.1 km of latitude).
const gridStep = 0.01

// CachedStore is an advisory read-through cache in front of a Store. Boxes
// are snapped outward to a 0.01° grid, so a cached entry always covers the
// requested box; the requested box is re-applied to cached rows before they
// are returned. Cache failures fall through to the store.
type CachedStore struct {
	next  Store
	cache *cache.CacheManager
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedStore wraps next. A nil log uses the package default logger.
func NewCachedStore(next Store, cm *cache.CacheManager, ttl time.Duration, log *logger.Logger) *CachedStore {
	if log == nil {
		log = logger.Default()
	}
	return &CachedStore{next: next, cache: cm, ttl: ttl, log: log}
}

// QueryAirports implements Store.
func (s *CachedStore) QueryAirports(ctx context.Context, box geo.BoundingBox, filter Filter) ([]Airport, error) {
	snapped := snapOutward(box)
	key := cache.CandidatesKey(snapped.MinLat, snapped.MaxLat, snapped.MinLon, snapped.MaxLon,
		filter.ISOCountry, filter.IncludeInactive)
	log := s.log.WithContext(ctx).WithField("cache_key", key)

	var cached []Airport
	err := s.cache.GetJSON(ctx, key, &cached)
	switch {
	case err == nil:
		log.Debug("candidate cache hit")
		return clip(cached, box), nil
	case errors.Is(err, cache.ErrCacheMiss):
		log.Debug("candidate cache miss")
	default:
		log.Error(err, "candidate cache get failed")
	}

	rows, err := s.next.QueryAirports(ctx, snapped, filter)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Airport{}
	}
	if err := s.cache.SetJSON(ctx, key, rows, s.ttl); err != nil {
		log.Error(err, "candidate cache set failed")
	}
	return clip(rows, box), nil
}

// AirportByIATA passes through when the wrapped store supports lookups.
func (s *CachedStore) AirportByIATA(ctx context.Context, iata string) (Airport, bool, error) {
	if l, ok := s.next.(Lookup); ok {
		return l.AirportByIATA(ctx, iata)
	}
	return Airport{}, false, nil
}

func snapOutward(b geo.BoundingBox) geo.BoundingBox {
	return geo.BoundingBox{
		MinLat: math.Floor(b.MinLat/gridStep) * gridStep,
		MaxLat: math.Ceil(b.MaxLat/gridStep) * gridStep,
		MinLon: math.Floor(b.MinLon/gridStep) * gridStep,
		MaxLon: math.Ceil(b.MaxLon/gridStep) * gridStep,
	}
}

func clip(rows []Airport, box geo.BoundingBox) []Airport {
	out := make([]Airport, 0, len(rows))
	for _, a := range rows {
		if box.Contains(a.Location) {
			out = append(out, a)
		}
	}
	return out
}
