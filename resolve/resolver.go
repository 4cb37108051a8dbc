// Package resolve turns free-form location input ("lat,lon", an IATA code
// or a place name) into validated coordinates.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	anyascii "github.com/anyascii/go"
	"github.com/gilby125/fly-or-drive/airports"
	"github.com/gilby125/fly-or-drive/pkg/apperr"
	"github.com/gilby125/fly-or-drive/pkg/cache"
	"github.com/gilby125/fly-or-drive/pkg/geo"
	"github.com/gilby125/fly-or-drive/pkg/logger"
)

var (
	// ErrNotFound means the input was well formed but matched nothing.
	ErrNotFound = errors.New("location not found")
	// ErrGeocoderUnavailable wraps geocoder failures.
	ErrGeocoderUnavailable = errors.New("geocoder unavailable")
)

// Kind records how an input was resolved.
type Kind string

const (
	KindCoordinates Kind = "coordinates"
	KindAirport     Kind = "airport"
	KindPlace       Kind = "place"
)

// Location is a resolved input.
type Location struct {
	Input       string            `json:"input"`
	Kind        Kind              `json:"kind"`
	Coordinates geo.Coordinates   `json:"coordinates"`
	Label       string            `json:"label,omitempty"`
	Airport     *airports.Airport `json:"airport,omitempty"`
}

// Geocoder looks up place names. A nil place with a nil error means no match.
type Geocoder interface {
	Search(ctx context.Context, query string) (*Place, error)
}

var (
	coordPattern = regexp.MustCompile(`^\s*([-+]?\d+(?:\.\d+)?)\s*[,;\s]\s*([-+]?\d+(?:\.\d+)?)\s*$`)
	iataPattern  = regexp.MustCompile(`^[A-Za-z]{3}$`)
	spaceRun     = regexp.MustCompile(`\s+`)
)

// Resolver resolves location input. Lookup and geocoder are both optional.
type Resolver struct {
	lookup   airports.Lookup
	geocoder Geocoder
	cache    *cache.CacheManager
	cacheTTL time.Duration
	log      *logger.Logger
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithAirportLookup enables IATA code resolution.
func WithAirportLookup(l airports.Lookup) Option {
	return func(r *Resolver) { r.lookup = l }
}

// WithGeocoder enables place-name resolution.
func WithGeocoder(g Geocoder) Option {
	return func(r *Resolver) { r.geocoder = g }
}

// WithCache caches geocoder answers, including misses, for ttl.
func WithCache(cm *cache.CacheManager, ttl time.Duration) Option {
	return func(r *Resolver) {
		r.cache = cm
		r.cacheTTL = ttl
	}
}

// WithLogger sets the resolver's logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// New builds a resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Default()
	}
	return r
}

// Resolve tries, in order: a "lat,lon" pair, a three-letter IATA code of an
// active airport, then the geocoder. A three-letter input that is not an
// airport code falls through to the geocoder.
func (r *Resolver) Resolve(ctx context.Context, input string) (Location, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Location{}, apperr.InvalidArgument("location", input, "must not be empty")
	}

	if m := coordPattern.FindStringSubmatch(trimmed); m != nil {
		return parseCoordinates(input, m[1], m[2])
	}

	if r.lookup != nil && iataPattern.MatchString(trimmed) {
		a, ok, err := r.lookup.AirportByIATA(ctx, strings.ToUpper(trimmed))
		if err != nil {
			return Location{}, apperr.StorageUnavailable("airport lookup", err)
		}
		if ok {
			return Location{
				Input:       input,
				Kind:        KindAirport,
				Coordinates: a.Location,
				Label:       a.Name,
				Airport:     &a,
			}, nil
		}
	}

	if r.geocoder == nil {
		return Location{}, fmt.Errorf("%w: %q is neither coordinates nor a known airport code", ErrNotFound, trimmed)
	}
	place, err := r.geocode(ctx, trimmed)
	if err != nil {
		return Location{}, err
	}
	if place == nil {
		return Location{}, fmt.Errorf("%w: %q", ErrNotFound, trimmed)
	}
	return Location{
		Input:       input,
		Kind:        KindPlace,
		Coordinates: place.Location,
		Label:       place.DisplayName,
	}, nil
}

// cachedPlace distinguishes a cached miss from a cached hit.
type cachedPlace struct {
	Found bool   `json:"found"`
	Place *Place `json:"place,omitempty"`
}

func (r *Resolver) geocode(ctx context.Context, name string) (*Place, error) {
	key := cache.GeocodeKey(FoldName(name))
	log := r.log.WithContext(ctx).WithField("geocode_key", key)

	if r.cache != nil {
		var hit cachedPlace
		err := r.cache.GetJSON(ctx, key, &hit)
		switch {
		case err == nil:
			log.Debug("geocode cache hit")
			return hit.Place, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			log.Error(err, "geocode cache get failed")
		}
	}

	place, err := r.geocoder.Search(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeocoderUnavailable, err)
	}
	if place != nil && !place.Location.IsValid() {
		log.Warn("geocoder returned out-of-range coordinates", "lat", place.Location.Lat, "lon", place.Location.Lon)
		place = nil
	}

	if r.cache != nil {
		if err := r.cache.SetJSON(ctx, key, cachedPlace{Found: place != nil, Place: place}, r.cacheTTL); err != nil {
			log.Error(err, "geocode cache set failed")
		}
	}
	return place, nil
}

func parseCoordinates(input, latStr, lonStr string) (Location, error) {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return Location{}, apperr.InvalidArgument("lat", latStr, "not a number")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return Location{}, apperr.InvalidArgument("lon", lonStr, "not a number")
	}
	c := geo.Coordinates{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return Location{}, err
	}
	return Location{Input: input, Kind: KindCoordinates, Coordinates: c}, nil
}

// FoldName normalises a place name for cache keys: ASCII transliteration,
// lower case, single spaces.
func FoldName(name string) string {
	folded := strings.ToLower(anyascii.Transliterate(name))
	return strings.TrimSpace(spaceRun.ReplaceAllString(folded, " "))
}
