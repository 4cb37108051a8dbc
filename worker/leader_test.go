package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func newTestElector(client *redis.Client, ttl, renew time.Duration, onElected, onDemoted func()) *LeaderElector {
	return NewLeaderElector(client, LeaderConfig{
		LockKey:       "test:leader",
		LockTTL:       ttl,
		RenewInterval: renew,
		OnElected:     onElected,
		OnDemoted:     onDemoted,
	}, nil)
}

func TestLeaderElector_AcquireLock_Success(t *testing.T) {
	mr, client := setupTestRedis(t)
	le := newTestElector(client, 30*time.Second, 10*time.Second, nil, nil)

	assert.True(t, le.acquire(context.Background()))

	val, err := mr.Get("test:leader")
	require.NoError(t, err)
	assert.Equal(t, le.InstanceID(), val)
	assert.Equal(t, 30*time.Second, mr.TTL("test:leader"))
}

func TestLeaderElector_AcquireLock_AlreadyHeld(t *testing.T) {
	mr, client := setupTestRedis(t)
	mr.Set("test:leader", "other-instance-123")

	le := newTestElector(client, 30*time.Second, 10*time.Second, nil, nil)
	assert.False(t, le.acquire(context.Background()))

	val, err := mr.Get("test:leader")
	require.NoError(t, err)
	assert.Equal(t, "other-instance-123", val)
}

func TestLeaderElector_RenewLock_Success(t *testing.T) {
	mr, client := setupTestRedis(t)
	le := newTestElector(client, 30*time.Second, 10*time.Second, nil, nil)

	ctx := context.Background()
	require.True(t, le.acquire(ctx))
	mr.FastForward(20 * time.Second)

	assert.True(t, le.renew(ctx))
	assert.Equal(t, 30*time.Second, mr.TTL("test:leader"))
}

func TestLeaderElector_RenewLock_LostOwnership(t *testing.T) {
	mr, client := setupTestRedis(t)
	le := newTestElector(client, 30*time.Second, 10*time.Second, nil, nil)

	ctx := context.Background()
	require.True(t, le.acquire(ctx))
	mr.Set("test:leader", "usurper")

	assert.False(t, le.renew(ctx))
}

func TestLeaderElector_RenewLock_Expired(t *testing.T) {
	mr, client := setupTestRedis(t)
	le := newTestElector(client, 30*time.Second, 10*time.Second, nil, nil)

	ctx := context.Background()
	require.True(t, le.acquire(ctx))
	mr.FastForward(31 * time.Second)

	assert.False(t, le.renew(ctx))
}

func TestLeaderElector_ReleaseLock(t *testing.T) {
	mr, client := setupTestRedis(t)
	le := newTestElector(client, 30*time.Second, 10*time.Second, nil, nil)

	ctx := context.Background()
	require.True(t, le.acquire(ctx))
	le.release(ctx)

	assert.False(t, mr.Exists("test:leader"))
}

func TestLeaderElector_ReleaseLock_NotOwned(t *testing.T) {
	mr, client := setupTestRedis(t)
	mr.Set("test:leader", "other-instance-789")

	le := newTestElector(client, 30*time.Second, 10*time.Second, nil, nil)
	le.release(context.Background())

	val, err := mr.Get("test:leader")
	require.NoError(t, err)
	assert.Equal(t, "other-instance-789", val)
}

func TestLeaderElector_Callbacks(t *testing.T) {
	mr, client := setupTestRedis(t)

	var elected, demoted atomic.Bool
	le := newTestElector(client, 100*time.Millisecond, 30*time.Millisecond,
		func() { elected.Store(true) },
		func() { demoted.Store(true) },
	)

	le.Start()
	defer le.Stop()

	require.Eventually(t, le.IsLeader, time.Second, 10*time.Millisecond)
	assert.True(t, elected.Load())

	mr.Set("test:leader", "another-instance-took-over")

	require.Eventually(t, func() bool { return !le.IsLeader() }, time.Second, 10*time.Millisecond)
	assert.True(t, demoted.Load())
}

func TestLeaderElector_StartStop(t *testing.T) {
	mr, client := setupTestRedis(t)

	var demoted atomic.Bool
	le := newTestElector(client, 30*time.Second, 10*time.Second, nil, func() { demoted.Store(true) })

	le.Start()
	require.Eventually(t, le.IsLeader, time.Second, 10*time.Millisecond)

	le.Stop()

	assert.False(t, le.IsLeader())
	assert.True(t, demoted.Load())
	assert.False(t, mr.Exists("test:leader"))
}

func TestLeaderElector_Defaults(t *testing.T) {
	_, client := setupTestRedis(t)

	le := newTestElector(client, 0, 0, nil, nil)
	assert.Equal(t, 30*time.Second, le.cfg.LockTTL)
	assert.Equal(t, 10*time.Second, le.cfg.RenewInterval)

	le = newTestElector(client, 9*time.Second, 12*time.Second, nil, nil)
	assert.Equal(t, 3*time.Second, le.cfg.RenewInterval)
}

func TestLeaderElector_InstanceID(t *testing.T) {
	_, client := setupTestRedis(t)

	a := newTestElector(client, 30*time.Second, 10*time.Second, nil, nil)
	b := newTestElector(client, 30*time.Second, 10*time.Second, nil, nil)

	assert.NotEmpty(t, a.InstanceID())
	assert.Contains(t, a.InstanceID(), "-")
	assert.NotEqual(t, a.InstanceID(), b.InstanceID())
}

func TestLeaderElector_MultipleInstances(t *testing.T) {
	_, client := setupTestRedis(t)

	var first, second atomic.Bool
	le1 := newTestElector(client, time.Second, 30*time.Millisecond, func() { first.Store(true) }, nil)
	le2 := newTestElector(client, time.Second, 30*time.Millisecond, func() { second.Store(true) }, nil)

	le1.Start()
	require.Eventually(t, le1.IsLeader, time.Second, 10*time.Millisecond)
	le2.Start()

	time.Sleep(150 * time.Millisecond)

	assert.True(t, le1.IsLeader())
	assert.False(t, le2.IsLeader())
	assert.True(t, first.Load())
	assert.False(t, second.Load())

	le1.Stop()
	require.Eventually(t, le2.IsLeader, time.Second, 10*time.Millisecond)
	assert.True(t, second.Load())
	le2.Stop()
}
