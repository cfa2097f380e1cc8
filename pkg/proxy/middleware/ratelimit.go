package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"tilehub/atlas/pkg/proxy/types"
	"tilehub/atlas/pkg/ratelimit"
	"tilehub/atlas/pkg/telemetry/metrics"
)

// RateLimitMiddleware gates requests through the per-client limiter. Denied
// requests get a 429 with Retry-After and X-RateLimit-Remaining headers.
// collector may be nil when metrics are disabled.
func RateLimitMiddleware(limiter *ratelimit.ClientLimiter, collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := ClientID(r)
			decision := limiter.Allow(clientID)

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				if collector != nil {
					collector.RecordRateLimited()
				}

				retryAfter := int(decision.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				errResp := types.NewErrorResponse(
					"Rate limit exceeded. Slow down and retry later.",
					types.ErrorTypeRateLimitExceeded, "", "")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(errResp)
				return
			}

			ctx := context.WithValue(r.Context(), ClientIDKey, clientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientID derives the rate-limit identity for a request: the first hop of
// X-Forwarded-For when present, otherwise the connection's remote host.
func ClientID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		if hop := strings.TrimSpace(fwd); hop != "" {
			return hop
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
