package worker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gilby125/fly-or-drive/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// LeaderConfig configures a LeaderElector.
type LeaderConfig struct {
	LockKey       string
	LockTTL       time.Duration
	RenewInterval time.Duration
	// OnElected and OnDemoted run on the election goroutine.
	OnElected func()
	OnDemoted func()
}

// LeaderElector holds a Redis lock so that only one replica runs the
// maintenance scheduler.
type LeaderElector struct {
	client     *redis.Client
	cfg        LeaderConfig
	instanceID string
	isLeader   atomic.Bool
	stop       chan struct{}
	wg         sync.WaitGroup
	log        *logger.Logger
}

// NewLeaderElector creates an elector. Nothing happens until Start.
func NewLeaderElector(client *redis.Client, cfg LeaderConfig, log *logger.Logger) *LeaderElector {
	if log == nil {
		log = logger.Default()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.RenewInterval <= 0 || cfg.RenewInterval >= cfg.LockTTL {
		cfg.RenewInterval = cfg.LockTTL / 3
	}

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "fly-or-drive"
	}
	instanceID := fmt.Sprintf("%s-%d", hostname, time.Now().UnixNano())

	return &LeaderElector{
		client:     client,
		cfg:        cfg,
		instanceID: instanceID,
		stop:       make(chan struct{}),
		log:        log.WithFields(map[string]interface{}{"instance": instanceID, "lock_key": cfg.LockKey}),
	}
}

// Start runs the election loop in the background.
func (le *LeaderElector) Start() {
	le.wg.Add(1)
	go le.loop()
	le.log.Info("Leader election started", "ttl", le.cfg.LockTTL, "renew", le.cfg.RenewInterval)
}

// Stop ends the loop and releases the lock if held.
func (le *LeaderElector) Stop() {
	close(le.stop)
	le.wg.Wait()

	if le.isLeader.Swap(false) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		le.release(ctx)
		if le.cfg.OnDemoted != nil {
			le.cfg.OnDemoted()
		}
	}
	le.log.Info("Leader election stopped")
}

// IsLeader reports whether this instance holds the lock.
func (le *LeaderElector) IsLeader() bool {
	return le.isLeader.Load()
}

// InstanceID identifies this replica in the lock value.
func (le *LeaderElector) InstanceID() string {
	return le.instanceID
}

func (le *LeaderElector) loop() {
	defer le.wg.Done()

	le.tick()
	ticker := time.NewTicker(le.cfg.RenewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-le.stop:
			return
		case <-ticker.C:
			le.tick()
		}
	}
}

func (le *LeaderElector) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if le.isLeader.Load() {
		if !le.renew(ctx) {
			le.log.Warn("Lost leadership")
			le.isLeader.Store(false)
			if le.cfg.OnDemoted != nil {
				le.cfg.OnDemoted()
			}
		}
		return
	}

	if le.acquire(ctx) {
		le.log.Info("Acquired leadership")
		le.isLeader.Store(true)
		if le.cfg.OnElected != nil {
			le.cfg.OnElected()
		}
	}
}

func (le *LeaderElector) acquire(ctx context.Context) bool {
	ok, err := le.client.SetNX(ctx, le.cfg.LockKey, le.instanceID, le.cfg.LockTTL).Result()
	if err != nil {
		le.log.Error(err, "Acquire leader lock failed")
		return false
	}
	return ok
}

// Extends the lock only while we still own it.
var renewScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

func (le *LeaderElector) renew(ctx context.Context) bool {
	n, err := renewScript.Run(ctx, le.client, []string{le.cfg.LockKey}, le.instanceID, le.cfg.LockTTL.Milliseconds()).Int()
	if err != nil {
		le.log.Error(err, "Renew leader lock failed")
		return false
	}
	return n == 1
}

// Deletes the lock only while we still own it.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

func (le *LeaderElector) release(ctx context.Context) {
	n, err := releaseScript.Run(ctx, le.client, []string{le.cfg.LockKey}, le.instanceID).Int()
	switch {
	case err != nil:
		le.log.Error(err, "Release leader lock failed")
	case n == 1:
		le.log.Info("Released leader lock")
	default:
		le.log.Debug("Leader lock already gone")
	}
}
