package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) (*gin.Engine, *PrometheusMiddleware, *prometheus.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMiddleware("test", reg)

	r := gin.New()
	r.Use(NewRequestLogger(nil).Handler(), pm.Handler())
	pm.RegisterMetricsEndpoint(r, reg)
	r.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(TraceIDKey))
	})
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	return r, pm, reg
}

func TestRequestLogger_SetsTraceID(t *testing.T) {
	r, _, _ := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get("X-Trace-Id"))
}

func TestPrometheusMiddleware_CountsErrors(t *testing.T) {
	r, pm, _ := newRouter(t)

	for _, path := range []string{"/ok", "/fail", "/fail", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.reqErrors.WithLabelValues("GET", "/fail", "400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.reqErrors.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(pm.reqInflight))
}

func TestMetricsEndpoint(t *testing.T) {
	r, _, _ := newRouter(t)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "test_http_request_duration_seconds"))
}
