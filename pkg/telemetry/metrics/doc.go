// Package metrics provides the Prometheus collector for proxy request,
// cache, upstream fetch, and rate limiter metrics.
package metrics
