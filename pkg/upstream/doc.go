// Package upstream provides the HTTP client used for all upstream style and
// tile fetches: pooled connections, bounded timeouts, retry with backoff,
// and typed failure classes that never echo upstream response bodies.
package upstream
