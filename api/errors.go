package api

import (
	"errors"
	"net/http"

	"github.com/gilby125/fly-or-drive/pkg/apperr"
	"github.com/gilby125/fly-or-drive/pkg/logger"
	"github.com/gilby125/fly-or-drive/resolve"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Param string `json:"param,omitempty"`
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case apperr.IsInvalidArgument(err):
		return http.StatusBadRequest
	case errors.Is(err, resolve.ErrNotFound):
		return http.StatusNotFound
	case apperr.IsStorageUnavailable(err), errors.Is(err, resolve.ErrGeocoderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as JSON. Internal failures are logged and their
// text is not echoed to the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := ErrorResponse{Error: err.Error()}

	var argErr *apperr.ArgumentError
	if errors.As(err, &argErr) {
		body.Param = argErr.Param
	}

	log := logger.WithContext(c.Request.Context())
	switch status {
	case http.StatusInternalServerError:
		log.Error(err, "Request failed", "path", c.FullPath())
		body.Error = "internal error"
	case http.StatusServiceUnavailable:
		log.Error(err, "Dependency unavailable", "path", c.FullPath())
	}

	c.AbortWithStatusJSON(status, body)
}
