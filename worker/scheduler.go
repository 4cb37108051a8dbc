// Package worker runs periodic maintenance: a cron scheduler gated by a
// Redis leader lock, so only one replica purges the shared caches.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gilby125/fly-or-drive/pkg/cache"
	"github.com/gilby125/fly-or-drive/pkg/logger"
	"github.com/robfig/cron/v3"
)

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) error

type job struct {
	spec string
	fn   JobFunc
}

// Scheduler runs named jobs on cron expressions. Jobs can be registered
// before or after Start; Stop waits for running jobs to finish.
type Scheduler struct {
	mutex      sync.Mutex
	cron       *cron.Cron
	jobs       map[string]job
	entries    map[string]cron.EntryID
	running    bool
	jobTimeout time.Duration
	log        *logger.Logger
}

// NewScheduler creates a stopped scheduler. Each run gets its own context
// bounded by jobTimeout.
func NewScheduler(jobTimeout time.Duration, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Default()
	}
	if jobTimeout <= 0 {
		jobTimeout = time.Minute
	}
	return &Scheduler{
		jobs:       make(map[string]job),
		entries:    make(map[string]cron.EntryID),
		jobTimeout: jobTimeout,
		log:        log,
	}
}

// AddJob registers fn under name. Registering an existing name replaces it.
func (s *Scheduler) AddJob(name, spec string, fn JobFunc) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("job %s: invalid cron expression %q: %w", name, spec, err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.jobs[name] = job{spec: spec, fn: fn}
	if s.running {
		if id, ok := s.entries[name]; ok {
			s.cron.Remove(id)
		}
		return s.schedule(name)
	}
	return nil
}

// Start begins running registered jobs. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.running {
		return
	}

	s.cron = cron.New()
	s.entries = make(map[string]cron.EntryID)
	for name := range s.jobs {
		if err := s.schedule(name); err != nil {
			s.log.Error(err, "Failed to schedule job", "job", name)
		}
	}
	s.cron.Start()
	s.running = true
	s.log.Info("Scheduler started", "jobs", len(s.entries))
}

// Stop halts the scheduler and waits for in-flight runs.
func (s *Scheduler) Stop() {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return
	}
	c := s.cron
	s.running = false
	s.mutex.Unlock()

	<-c.Stop().Done()
	s.log.Info("Scheduler stopped")
}

// Running reports whether the scheduler is started.
func (s *Scheduler) Running() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running
}

// RunNow executes a registered job synchronously.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mutex.Lock()
	j, ok := s.jobs[name]
	s.mutex.Unlock()
	if !ok {
		return fmt.Errorf("job %s not registered", name)
	}
	return s.run(ctx, name, j.fn)
}

// NextRun returns the next scheduled time of a job, or the zero time when
// the scheduler is stopped or the job is unknown.
func (s *Scheduler) NextRun(name string) time.Time {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	id, ok := s.entries[name]
	if !ok || !s.running {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// schedule must be called with the mutex held.
func (s *Scheduler) schedule(name string) error {
	j := s.jobs[name]
	id, err := s.cron.AddFunc(j.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()
		_ = s.run(ctx, name, j.fn)
	})
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	s.entries[name] = id
	return nil
}

func (s *Scheduler) run(ctx context.Context, name string, fn JobFunc) error {
	start := time.Now()
	log := s.log.WithField("job", name)
	if err := fn(ctx); err != nil {
		log.Error(err, "Job failed", "duration", time.Since(start))
		return err
	}
	log.Info("Job completed", "duration", time.Since(start))
	return nil
}

// CachePurgeJob is the name the cache purge is registered under.
const CachePurgeJob = "cache-purge"

// CachePurger drops every candidate and geocode entry from the shared cache.
// Entries expire on their own; the purge bounds how long stale airport
// rows survive a reload of the store.
type CachePurger struct {
	cache *cache.CacheManager
	log   *logger.Logger
}

// NewCachePurger creates a purger for cm.
func NewCachePurger(cm *cache.CacheManager, log *logger.Logger) *CachePurger {
	if log == nil {
		log = logger.Default()
	}
	return &CachePurger{cache: cm, log: log}
}

// Purge clears both key families and returns the number of keys removed.
func (p *CachePurger) Purge(ctx context.Context) (int, error) {
	total := 0
	for _, pattern := range []string{cache.CandidatesPattern, cache.GeocodePattern} {
		n, err := p.cache.Clear(ctx, pattern)
		total += n
		if err != nil {
			return total, fmt.Errorf("clear %s: %w", pattern, err)
		}
	}
	p.log.Info("Purged cache", "keys", total)
	return total, nil
}

// Job adapts Purge to a JobFunc.
func (p *CachePurger) Job() JobFunc {
	return func(ctx context.Context) error {
		_, err := p.Purge(ctx)
		return err
	}
}
