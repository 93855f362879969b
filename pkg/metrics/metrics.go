// Package metrics 提供定价服务的 Prometheus 指标
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "optionsrisk"

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 定价请求计数（按模型与操作）
	PricingRequestsTotal *prometheus.CounterVec
	// 定价错误计数（按错误类别）
	PricingErrorsTotal *prometheus.CounterVec
	// 定价耗时（按模型）
	PricingDuration *prometheus.HistogramVec
	// 未收敛结果计数
	NonConvergedTotal *prometheus.CounterVec

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	registry *prometheus.Registry
}

// New 创建指标实例并注册到独立的 registry
func New(serviceName string) *Metrics {
	constLabels := prometheus.Labels{"service": serviceName}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "http_requests_total",
			Help:        "Total HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "path"}),
		PricingRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "pricing_requests_total",
			Help:        "Pricing engine invocations",
			ConstLabels: constLabels,
		}, []string{"model", "operation"}),
		PricingErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "pricing_errors_total",
			Help:        "Pricing failures by error kind",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		PricingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "pricing_duration_seconds",
			Help:        "Pricing engine latency by model",
			Buckets:     []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			ConstLabels: constLabels,
		}, []string{"model"}),
		NonConvergedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "pricing_non_converged_total",
			Help:        "Results returned with converged=false",
			ConstLabels: constLabels,
		}, []string{"model"}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "pricing_cache_hits_total",
			Help:        "Result cache hits",
			ConstLabels: constLabels,
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "pricing_cache_misses_total",
			Help:        "Result cache misses",
			ConstLabels: constLabels,
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PricingRequestsTotal,
		m.PricingErrorsTotal,
		m.PricingDuration,
		m.NonConvergedTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		prometheus.NewGoCollector(),
	)
	return m
}

// Registry 返回指标所在的 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 /metrics 的 HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Collector 指标收集器接口，应用层只依赖该接口
type Collector interface {
	RecordHTTPRequest(method, path string, statusCode int, seconds float64)
	RecordPricing(model, operation string, seconds float64, converged bool)
	RecordPricingError(kind string)
	RecordCache(hit bool)
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// RecordPricing 记录一次定价
func (m *Metrics) RecordPricing(model, operation string, seconds float64, converged bool) {
	m.PricingRequestsTotal.WithLabelValues(model, operation).Inc()
	m.PricingDuration.WithLabelValues(model).Observe(seconds)
	if !converged {
		m.NonConvergedTotal.WithLabelValues(model).Inc()
	}
}

// RecordPricingError 记录定价错误
func (m *Metrics) RecordPricingError(kind string) {
	m.PricingErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordCache 记录缓存命中情况
func (m *Metrics) RecordCache(hit bool) {
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
}

// NopCollector 不记录任何指标
type NopCollector struct{}

func (NopCollector) RecordHTTPRequest(string, string, int, float64)   {}
func (NopCollector) RecordPricing(string, string, float64, bool)      {}
func (NopCollector) RecordPricingError(string)                        {}
func (NopCollector) RecordCache(bool)                                 {}
