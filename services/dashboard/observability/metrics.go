package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "matomo_dashboard"

// Cache read results
const (
	CacheReadHit     = "hit"
	CacheReadExpired = "expired"
	CacheReadMiss    = "miss"
	CacheReadCorrupt = "corrupt"
)

// Metrics holds all Prometheus metrics of the dashboard service
type Metrics struct {
	registry *prometheus.Registry

	// Upstream metrics
	UpstreamCallsTotal   *prometheus.CounterVec
	UpstreamCallDuration *prometheus.HistogramVec

	// Cache metrics
	CacheReadsTotal  *prometheus.CounterVec
	CacheWritesTotal *prometheus.CounterVec

	// Aggregation metrics
	SiteFailuresTotal *prometheus.CounterVec
	OutcomesTotal     *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		UpstreamCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_calls_total",
				Help:      "Total number of upstream API calls, after retries",
			},
			[]string{"method", "result"},
		),
		UpstreamCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_call_duration_seconds",
				Help:      "Upstream API call duration in seconds, retries included",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		CacheReadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_reads_total",
				Help:      "Total number of cache reads by result",
			},
			[]string{"key", "result"},
		),
		CacheWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_writes_total",
				Help:      "Total number of cache writes by result",
			},
			[]string{"key", "result"},
		),
		SiteFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "site_failures_total",
				Help:      "Total number of per-site fetch failures replaced by zero values",
			},
			[]string{"metric"},
		),
		OutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "request_outcomes_total",
				Help:      "Total number of metric requests by outcome",
			},
			[]string{"metric", "outcome"},
		),
	}

	registry.MustRegister(
		m.UpstreamCallsTotal,
		m.UpstreamCallDuration,
		m.CacheReadsTotal,
		m.CacheWritesTotal,
		m.SiteFailuresTotal,
		m.OutcomesTotal,
	)

	return m
}

// RecordUpstreamCall records the result of one upstream call
func (m *Metrics) RecordUpstreamCall(method string, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}

	m.UpstreamCallsTotal.WithLabelValues(method, result).Inc()
	m.UpstreamCallDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordCacheRead records the result of one cache read
func (m *Metrics) RecordCacheRead(key string, result string) {
	m.CacheReadsTotal.WithLabelValues(key, result).Inc()
}

// RecordCacheWrite records the result of one cache write
func (m *Metrics) RecordCacheWrite(key string, success bool) {
	result := "success"
	if !success {
		result = "error"
	}

	m.CacheWritesTotal.WithLabelValues(key, result).Inc()
}

// RecordSiteFailure records one isolated per-site failure
func (m *Metrics) RecordSiteFailure(metric string) {
	m.SiteFailuresTotal.WithLabelValues(metric).Inc()
}

// RecordOutcome records how a metric request was answered
func (m *Metrics) RecordOutcome(metric string, outcome string) {
	m.OutcomesTotal.WithLabelValues(metric, outcome).Inc()
}

// Handler returns the HTTP handler exposing the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IsInterfaceNil returns true if the value under the interface is nil
func (m *Metrics) IsInterfaceNil() bool {
	return m == nil
}
