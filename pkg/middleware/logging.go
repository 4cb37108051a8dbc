package middleware

import (
	"net/http"
	"time"

	"github.com/gilby125/fly-or-drive/pkg/logger"
	"github.com/gin-gonic/gin"
)

// RequestLogger logs one structured line per request. It runs after
// RequestID so the line carries the request id.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		statusCode := c.Writer.Status()
		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       path,
			"status":     statusCode,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}
		if raw != "" {
			fields["query"] = raw
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		l := log.WithContext(c.Request.Context()).WithFields(fields)
		switch {
		case statusCode >= 500:
			l.Error(nil, "HTTP Request")
		case statusCode >= 400:
			l.Warn("HTTP Request")
		default:
			l.Info("HTTP Request")
		}
	}
}

// Recovery turns a panic into a 500 JSON response and logs it.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Default()
	}
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.WithContext(c.Request.Context()).WithFields(map[string]interface{}{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"client_ip": c.ClientIP(),
			"panic":     recovered,
		}).Error(nil, "Panic recovered")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})
}
