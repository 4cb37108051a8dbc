package db

import (
	"context"
	"fmt"

	"github.com/gilby125/fly-or-drive/airports"
	"github.com/gilby125/fly-or-drive/config"
	"github.com/gilby125/fly-or-drive/pkg/logger"
)

// Backend names accepted by STORE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendNeo4j    = "neo4j"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Backend is an airport store the service can own and health-check.
type Backend interface {
	airports.Store
	airports.Lookup
	Ping(ctx context.Context) error
	Close() error
}

// Open connects the backend named in cfg.StoreConfig. With cfg.InitSchema
// set, schemas are created and empty stores receive SampleAirports.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (Backend, error) {
	if log == nil {
		log = logger.Default()
	}
	log = log.WithField("backend", cfg.StoreConfig.Backend)

	switch cfg.StoreConfig.Backend {
	case BackendPostgres:
		if cfg.InitSchema {
			if err := RunMigrations(ctx, cfg.PostgresConfig.DSN(), log); err != nil {
				return nil, err
			}
		}
		store, err := NewPostgresStore(ctx, cfg.PostgresConfig)
		if err != nil {
			return nil, err
		}
		if cfg.InitSchema {
			n, err := store.SeedIfEmpty(ctx, SampleAirports)
			if err != nil {
				store.Close()
				return nil, err
			}
			if n > 0 {
				log.Info("Seeded sample airports", "count", n)
			}
		}
		return store, nil

	case BackendNeo4j:
		store, err := NewNeo4jStore(ctx, cfg.Neo4jConfig)
		if err != nil {
			return nil, err
		}
		if cfg.InitSchema {
			if err := store.InitSchema(ctx); err != nil {
				store.Close()
				return nil, err
			}
			if err := store.UpsertAirports(ctx, SampleAirports); err != nil {
				store.Close()
				return nil, err
			}
		}
		return store, nil

	case BackendSQLite:
		store, err := OpenSQLite(cfg.SQLiteConfig.Path, log)
		if err != nil {
			return nil, err
		}
		n, err := store.Count(ctx)
		if err != nil {
			store.Close()
			return nil, err
		}
		if n == 0 && (cfg.InitSchema || cfg.SQLiteConfig.Path == ":memory:") {
			if err := store.Load(ctx, SampleAirports); err != nil {
				store.Close()
				return nil, err
			}
		}
		return store, nil

	case BackendMemory:
		log.Info("Using in-memory airport store", "count", len(SampleAirports))
		return NewMemoryStore(SampleAirports), nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreConfig.Backend)
}
