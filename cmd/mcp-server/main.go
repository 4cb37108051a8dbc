// Command mcp-server exposes nearest-airport lookup and fly-or-drive
// estimation as MCP tools over stdio.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gilby125/fly-or-drive/airports"
	"github.com/gilby125/fly-or-drive/config"
	"github.com/gilby125/fly-or-drive/db"
	"github.com/gilby125/fly-or-drive/pkg/buildinfo"
	"github.com/gilby125/fly-or-drive/pkg/logger"
	"github.com/gilby125/fly-or-drive/resolve"
	"github.com/gilby125/fly-or-drive/trip"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol
	logger.Init(logger.Config{Level: cfg.LoggingConfig.Level, Format: "json", Output: os.Stderr})
	log := logger.Default()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	backend, err := db.Open(ctx, cfg, log)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening airport store: %v\n", err)
		os.Exit(1)
	}
	defer backend.Close()

	finder := airports.NewFinder(backend, cfg.SearchConfig,
		airports.WithLogger(log),
		airports.WithStoreTimeout(cfg.StoreConfig.Timeout),
	)
	opts := []resolve.Option{resolve.WithAirportLookup(backend), resolve.WithLogger(log)}
	if cfg.GeocoderConfig.Enabled {
		opts = append(opts, resolve.WithGeocoder(resolve.NewNominatim(cfg.GeocoderConfig, log)))
	}

	s := newServer(tools{
		finder:    finder,
		estimator: trip.NewEstimator(cfg.EstimatorConfig, finder, trip.WithLogger(log)),
		resolver:  resolve.New(opts...),
	})

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
	}
}

func newServer(t tools) *server.MCPServer {
	s := server.NewMCPServer(
		"fly-or-drive-mcp",
		buildinfo.Version,
		server.WithLogging(),
	)
	s.AddTool(nearestAirportsTool, t.nearestAirports)
	s.AddTool(estimateTripTool, t.estimateTrip)
	s.AddTool(resolveLocationTool, t.resolveLocation)
	return s
}
