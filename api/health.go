package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gilby125/fly-or-drive/pkg/buildinfo"
	"github.com/gilby125/fly-or-drive/pkg/health"
	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 3 * time.Second

func healthStatusCode(s health.Status) int {
	if s == health.StatusDown {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func healthHandler(check func(context.Context) health.HealthReport) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		report := check(ctx)
		c.JSON(healthStatusCode(report.Status), report)
	}
}

// GetHealth reports every component. Degraded still answers 200.
func GetHealth(h *health.HealthChecker) gin.HandlerFunc {
	return healthHandler(h.CheckHealth)
}

// GetReadiness reports whether the airport store is reachable.
func GetReadiness(h *health.HealthChecker) gin.HandlerFunc {
	return healthHandler(h.CheckReadiness)
}

// GetLiveness always answers while the process serves requests.
func GetLiveness(h *health.HealthChecker) gin.HandlerFunc {
	return healthHandler(h.CheckLiveness)
}

// GetVersion returns build metadata.
func GetVersion() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, buildinfo.Info())
	}
}
