package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tilehub/atlas/pkg/config"
)

// Collector owns all Prometheus metrics for the proxy. It registers on a
// private registry so tests can construct isolated collectors.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	upstreamFetches  *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec

	rateLimited prometheus.Counter
}

// NewCollector creates a collector and registers its metrics. If registry
// is nil a fresh one is created.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "atlas"
	}

	c := &Collector{
		registry: registry,

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total proxy requests by endpoint and status class",
			},
			[]string{"endpoint", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Proxy request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"endpoint"},
		),

		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Cache hits by payload kind",
			},
			[]string{"kind"},
		),

		cacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Cache misses by payload kind",
			},
			[]string{"kind"},
		),

		upstreamFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_fetches_total",
				Help:      "Upstream fetches by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),

		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_fetch_duration_seconds",
				Help:      "Upstream fetch duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"provider"},
		),

		rateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),
	}

	registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.cacheHits,
		c.cacheMisses,
		c.upstreamFetches,
		c.upstreamDuration,
		c.rateLimited,
	)

	return c
}

// Registry returns the underlying Prometheus registry for the /metrics
// handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordRequest records one completed proxy request.
func (c *Collector) RecordRequest(endpoint, status string, duration time.Duration) {
	c.requestsTotal.WithLabelValues(endpoint, status).Inc()
	c.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordCacheHit records a cache hit for a payload kind ("tile", "style", "ref").
func (c *Collector) RecordCacheHit(kind string) {
	c.cacheHits.WithLabelValues(kind).Inc()
}

// RecordCacheMiss records a cache miss for a payload kind.
func (c *Collector) RecordCacheMiss(kind string) {
	c.cacheMisses.WithLabelValues(kind).Inc()
}

// RecordUpstreamFetch records an upstream fetch outcome
// ("success", "not_found", "timeout", "error").
func (c *Collector) RecordUpstreamFetch(provider, outcome string, duration time.Duration) {
	c.upstreamFetches.WithLabelValues(provider, outcome).Inc()
	c.upstreamDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordRateLimited records a request rejected by the limiter.
func (c *Collector) RecordRateLimited() {
	c.rateLimited.Inc()
}
