package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPricing(t *testing.T) {
	m := New("pricing")
	m.RecordPricing("Heston", "price", 0.01, false)
	m.RecordPricing("Heston", "price", 0.02, true)
	m.RecordPricingError("NonConvergence")
	m.RecordCache(true)
	m.RecordCache(false)
	m.RecordCache(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PricingRequestsTotal.WithLabelValues("Heston", "price")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NonConvergedTotal.WithLabelValues("Heston")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PricingErrorsTotal.WithLabelValues("NonConvergence")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New("pricing")
	m.RecordHTTPRequest("POST", "/api/v1/pricing/option/price", 200, 0.003)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "optionsrisk_http_requests_total")
}

func TestIndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New("a")
		New("a")
	})
}
