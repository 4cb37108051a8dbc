package airports

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gilby125/fly-or-drive/pkg/cache"
	"github.com/gilby125/fly-or-drive/pkg/geo"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, *cache.CacheManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, cache.NewCacheManager(cache.NewRedisCache(client, "test"))
}

func TestCachedStore_ReadThrough(t *testing.T) {
	_, cm := newTestCache(t)
	rows := []Airport{
		testAirport("KDEN", "US", 39.861698, -104.672997),
		testAirport("KAPA", "US", 39.570099, -104.848999),
	}
	store := new(MockStore)
	store.On("QueryAirports", mock.Anything, mock.Anything, Filter{}).Return(rows, nil).Once()

	cached := NewCachedStore(store, cm, time.Hour, nil)
	box, err := geo.ComputeBoundingBox(denver, 100)
	require.NoError(t, err)

	first, err := cached.QueryAirports(context.Background(), box, Filter{})
	require.NoError(t, err)
	second, err := cached.QueryAirports(context.Background(), box, Filter{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, second, 2)
	store.AssertNumberOfCalls(t, "QueryAirports", 1)
}

func TestCachedStore_SnapsOutwardAndClips(t *testing.T) {
	_, cm := newTestCache(t)
	box := geo.BoundingBox{MinLat: 39.003, MaxLat: 39.997, MinLon: -105.004, MaxLon: -104.006}
	inside := testAirport("KIN", "US", 39.5, -104.5)
	// Within the snapped grid box but outside the requested one.
	edge := testAirport("KEDG", "US", 39.999, -104.5)

	store := new(MockStore)
	snapped := geo.BoundingBox{MinLat: 39.0, MaxLat: 40.0, MinLon: -105.01, MaxLon: -104.0}
	store.On("QueryAirports", mock.Anything, mock.MatchedBy(func(b geo.BoundingBox) bool {
		return b.MinLat <= snapped.MinLat+1e-9 && b.MaxLat >= snapped.MaxLat-1e-9 &&
			b.MinLon <= snapped.MinLon+1e-9 && b.MaxLon >= snapped.MaxLon-1e-9
	}), Filter{}).Return([]Airport{inside, edge}, nil).Once()

	cached := NewCachedStore(store, cm, time.Hour, nil)
	rows, err := cached.QueryAirports(context.Background(), box, Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "KIN", rows[0].Ident)
	store.AssertExpectations(t)
}

func TestCachedStore_FilterIsPartOfKey(t *testing.T) {
	_, cm := newTestCache(t)
	store := new(MockStore)
	store.On("QueryAirports", mock.Anything, mock.Anything, Filter{}).
		Return([]Airport{testAirport("KDEN", "US", 39.861698, -104.672997)}, nil).Once()
	store.On("QueryAirports", mock.Anything, mock.Anything, Filter{ISOCountry: "CA"}).
		Return([]Airport{}, nil).Once()

	cached := NewCachedStore(store, cm, time.Hour, nil)
	box, err := geo.ComputeBoundingBox(denver, 50)
	require.NoError(t, err)

	all, err := cached.QueryAirports(context.Background(), box, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	ca, err := cached.QueryAirports(context.Background(), box, Filter{ISOCountry: "CA"})
	require.NoError(t, err)
	assert.Empty(t, ca)

	// Both now served from cache.
	_, err = cached.QueryAirports(context.Background(), box, Filter{ISOCountry: "CA"})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestCachedStore_FallsThroughWhenRedisDown(t *testing.T) {
	mr, cm := newTestCache(t)
	mr.Close()

	store := new(MockStore)
	store.On("QueryAirports", mock.Anything, mock.Anything, Filter{}).
		Return([]Airport{testAirport("KDEN", "US", 39.861698, -104.672997)}, nil).Twice()

	cached := NewCachedStore(store, cm, time.Hour, nil)
	box, err := geo.ComputeBoundingBox(denver, 50)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		rows, err := cached.QueryAirports(context.Background(), box, Filter{})
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	}
	store.AssertExpectations(t)
}

func TestCachedStore_ExpiresWithTTL(t *testing.T) {
	mr, cm := newTestCache(t)
	store := new(MockStore)
	store.On("QueryAirports", mock.Anything, mock.Anything, Filter{}).Return([]Airport{}, nil).Twice()

	cached := NewCachedStore(store, cm, time.Minute, nil)
	box, err := geo.ComputeBoundingBox(denver, 50)
	require.NoError(t, err)

	_, err = cached.QueryAirports(context.Background(), box, Filter{})
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = cached.QueryAirports(context.Background(), box, Filter{})
	require.NoError(t, err)

	store.AssertExpectations(t)
}

func TestCachedStore_StoreErrorNotCached(t *testing.T) {
	_, cm := newTestCache(t)
	store := new(MockStore)
	store.On("QueryAirports", mock.Anything, mock.Anything, Filter{}).Return(nil, context.DeadlineExceeded).Once()
	store.On("QueryAirports", mock.Anything, mock.Anything, Filter{}).Return([]Airport{}, nil).Once()

	cached := NewCachedStore(store, cm, time.Hour, nil)
	box, err := geo.ComputeBoundingBox(denver, 50)
	require.NoError(t, err)

	_, err = cached.QueryAirports(context.Background(), box, Filter{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	rows, err := cached.QueryAirports(context.Background(), box, Filter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
