package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/optionsrisk/pkg/config"
	"github.com/wyfcoding/optionsrisk/pkg/logger"
	"github.com/wyfcoding/optionsrisk/pkg/ratelimit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingCollector struct {
	paths    []string
	statuses []int
}

func (r *recordingCollector) RecordHTTPRequest(_ string, path string, status int, _ float64) {
	r.paths = append(r.paths, path)
	r.statuses = append(r.statuses, status)
}
func (r *recordingCollector) RecordPricing(string, string, float64, bool) {}
func (r *recordingCollector) RecordPricingError(string)                  {}
func (r *recordingCollector) RecordCache(bool)                           {}

func TestLoggingMiddlewarePropagatesIDs(t *testing.T) {
	r := gin.New()
	r.Use(GinLoggingMiddleware())
	var seenTrace, seenRequest string
	r.GET("/ping", func(c *gin.Context) {
		seenTrace = logger.TraceID(c.Request.Context())
		seenRequest = logger.RequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(TraceHeader, "trace-abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "trace-abc", seenTrace)
	assert.NotEmpty(t, seenRequest)
	assert.Equal(t, seenRequest, rec.Header().Get(RequestIDHeader))
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(GinLoggingMiddleware(), GinRecoveryMiddleware())
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "request_id")
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(GinCORSMiddleware())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/x", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	col := &recordingCollector{}
	r := gin.New()
	r.Use(GinMetricsMiddleware(col))
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Len(t, col.paths, 2)
	assert.Equal(t, "/items/:id", col.paths[0])
	assert.Equal(t, http.StatusAccepted, col.statuses[0])
	assert.Equal(t, "unmatched", col.paths[1])
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(ratelimit.NewLocalRateLimiter(), config.RateLimitConfig{Enabled: true, QPS: 1, Burst: 1}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/x", nil))
	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}

func TestRateLimitKeysAndExemptions(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(ratelimit.NewLocalRateLimiter(), config.RateLimitConfig{Enabled: true, QPS: 1, Burst: 1}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/sys/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(path, apiKey string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if apiKey != "" {
			req.Header.Set(APIKeyHeader, apiKey)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("/x", "alpha"))
	assert.Equal(t, http.StatusTooManyRequests, call("/x", "alpha"))
	// 不同调用方各自计数
	assert.Equal(t, http.StatusOK, call("/x", "beta"))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, call("/sys/health", "alpha"))
	}
}
