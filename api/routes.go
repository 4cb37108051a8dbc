package api

import (
	"github.com/gilby125/fly-or-drive/pkg/health"
	"github.com/gilby125/fly-or-drive/pkg/logger"
	"github.com/gilby125/fly-or-drive/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// Deps are the services the routes are wired to. Resolver may be nil, in
// which case trips and the location parameter are unavailable.
type Deps struct {
	Finder    Finder
	Estimator Estimator
	Resolver  Resolver
	Health    *health.HealthChecker
	Logger    *logger.Logger
}

// RegisterRoutes registers all API routes
func RegisterRoutes(router *gin.Engine, deps Deps) {
	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}

	// Setup middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Recovery(log))

	// Health check endpoints
	if deps.Health != nil {
		router.GET("/health", GetHealth(deps.Health))
		router.GET("/health/ready", GetReadiness(deps.Health))
		router.GET("/health/live", GetLiveness(deps.Health))
	}
	router.GET("/version", GetVersion())

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Airport routes
		v1.GET("/airports/nearest", GetNearestAirports(deps.Finder, deps.Resolver))

		if deps.Resolver != nil {
			// Trip routes
			v1.GET("/trips/drive", EstimateDrive(deps.Estimator, deps.Resolver))
			v1.POST("/trips/drive", EstimateDrive(deps.Estimator, deps.Resolver))
			v1.GET("/trips/compare", CompareTrip(deps.Estimator, deps.Resolver))
			v1.POST("/trips/compare", CompareTrip(deps.Estimator, deps.Resolver))

			// Location routes
			v1.GET("/locations/resolve", ResolveLocation(deps.Resolver))
		}
	}
}
