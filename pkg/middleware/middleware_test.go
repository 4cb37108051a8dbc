package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gilby125/fly-or-drive/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(buf *bytes.Buffer) *gin.Engine {
	log := logger.New(logger.Config{Level: "debug", Format: "json", Output: buf})
	r := gin.New()
	r.Use(RequestID(), RequestLogger(log), Recovery(log))
	r.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": GetRequestID(c)})
	})
	r.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "nope"})
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestRequestID_Generated(t *testing.T) {
	var buf bytes.Buffer
	w := httptest.NewRecorder()
	newRouter(&buf).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	id := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, id, body["request_id"])

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, id, lines[0]["request_id"])
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.EqualValues(t, 200, lines[0]["status"])
}

func TestRequestID_Propagated(t *testing.T) {
	var buf bytes.Buffer
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	newRouter(&buf).ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRequestID_OversizedIncomingReplaced(t *testing.T) {
	var buf bytes.Buffer
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
	w := httptest.NewRecorder()
	newRouter(&buf).ServeHTTP(w, req)

	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestRequestLogger_LevelByStatus(t *testing.T) {
	var buf bytes.Buffer
	w := httptest.NewRecorder()
	newRouter(&buf).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing?x=1", nil))

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "x=1", lines[0]["query"])
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	w := httptest.NewRecorder()
	newRouter(&buf).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal error")
	assert.Contains(t, buf.String(), "Panic recovered")
}
