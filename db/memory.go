package db

import (
	"context"
	"strings"
	"sync"

	"github.com/gilby125/fly-or-drive/airports"
	"github.com/gilby125/fly-or-drive/pkg/geo"
)

// MemoryStore keeps airports in a slice. It scans linearly, which is fine for
// development data sets and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	airports []airports.Airport
}

// NewMemoryStore copies rows into a new store.
func NewMemoryStore(rows []airports.Airport) *MemoryStore {
	s := &MemoryStore{}
	s.Replace(rows)
	return s
}

// Replace swaps the whole data set.
func (s *MemoryStore) Replace(rows []airports.Airport) {
	cp := make([]airports.Airport, len(rows))
	copy(cp, rows)
	s.mu.Lock()
	s.airports = cp
	s.mu.Unlock()
}

// QueryAirports implements airports.Store.
func (s *MemoryStore) QueryAirports(ctx context.Context, box geo.BoundingBox, filter airports.Filter) ([]airports.Airport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []airports.Airport
	for _, a := range s.airports {
		if box.Contains(a.Location) && filter.Matches(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

// AirportByIATA implements airports.Lookup.
func (s *MemoryStore) AirportByIATA(ctx context.Context, iata string) (airports.Airport, bool, error) {
	if err := ctx.Err(); err != nil {
		return airports.Airport{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.airports {
		if a.Active && a.IATA != "" && strings.EqualFold(a.IATA, iata) {
			return a, true, nil
		}
	}
	return airports.Airport{}, false, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

var (
	_ airports.Store  = (*MemoryStore)(nil)
	_ airports.Lookup = (*MemoryStore)(nil)
)
