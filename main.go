package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gilby125/fly-or-drive/airports"
	"github.com/gilby125/fly-or-drive/api"
	"github.com/gilby125/fly-or-drive/config"
	"github.com/gilby125/fly-or-drive/db"
	"github.com/gilby125/fly-or-drive/pkg/buildinfo"
	"github.com/gilby125/fly-or-drive/pkg/cache"
	"github.com/gilby125/fly-or-drive/pkg/health"
	"github.com/gilby125/fly-or-drive/pkg/logger"
	"github.com/gilby125/fly-or-drive/resolve"
	"github.com/gilby125/fly-or-drive/trip"
	"github.com/gilby125/fly-or-drive/worker"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err, "Failed to load configuration")
	}

	logger.Init(logger.Config{
		Level:  cfg.LoggingConfig.Level,
		Format: cfg.LoggingConfig.Format,
	})
	log := logger.Default()
	log.Info("Configuration loaded",
		"environment", cfg.Environment,
		"backend", cfg.StoreConfig.Backend,
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	backend, err := db.Open(startCtx, cfg, log)
	cancelStart()
	if err != nil {
		logger.Fatal(err, "Failed to open airport store")
	}
	defer backend.Close()

	hc := health.NewHealthChecker(buildinfo.Version)
	hc.AddChecker(&health.StoreChecker{Store: backend, Name: "airport_store", Backend: cfg.StoreConfig.Backend})

	var store airports.Store = backend
	resolverOpts := []resolve.Option{
		resolve.WithAirportLookup(backend),
		resolve.WithLogger(log),
	}

	if cfg.RedisConfig.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Addr(),
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		defer redisClient.Close()

		hc.AddChecker(&health.RedisChecker{Client: redisClient, Name: "redis"})

		cm := cache.NewCacheManager(cache.NewRedisCache(redisClient, cfg.RedisConfig.KeyPrefix))
		store = airports.NewCachedStore(backend, cm, cfg.RedisConfig.CandidateTTL, log)
		resolverOpts = append(resolverOpts, resolve.WithCache(cm, cfg.RedisConfig.GeocodeTTL))

		if cfg.RedisConfig.CachePurgeSchedule != "" {
			scheduler := worker.NewScheduler(5*time.Minute, log)
			if err := scheduler.AddJob(worker.CachePurgeJob, cfg.RedisConfig.CachePurgeSchedule, worker.NewCachePurger(cm, log).Job()); err != nil {
				logger.Fatal(err, "Failed to schedule cache purge")
			}

			elector := worker.NewLeaderElector(redisClient, worker.LeaderConfig{
				LockKey:   cfg.RedisConfig.KeyPrefix + ":scheduler:leader",
				LockTTL:   30 * time.Second,
				OnElected: scheduler.Start,
				OnDemoted: scheduler.Stop,
			}, log)
			elector.Start()
			defer elector.Stop()
		}
		log.Info("Redis caching enabled", "addr", cfg.RedisConfig.Addr())
	}

	if cfg.GeocoderConfig.Enabled {
		resolverOpts = append(resolverOpts, resolve.WithGeocoder(resolve.NewNominatim(cfg.GeocoderConfig, log)))
	}

	finder := airports.NewFinder(store, cfg.SearchConfig,
		airports.WithLogger(log),
		airports.WithStoreTimeout(cfg.StoreConfig.Timeout),
	)
	estimator := trip.NewEstimator(cfg.EstimatorConfig, finder, trip.WithLogger(log))
	resolver := resolve.New(resolverOpts...)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	api.RegisterRoutes(router, api.Deps{
		Finder:    finder,
		Estimator: estimator,
		Resolver:  resolver,
		Health:    hc,
		Logger:    log,
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.HTTPBindAddr, cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("Server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err, "Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	log.Info("Server exited properly")
}
