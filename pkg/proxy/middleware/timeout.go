package middleware

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware attaches a per-request deadline to the context. Handlers
// pass the context into upstream fetches, which convert an expired deadline
// into a gateway timeout response; the middleware itself never races the
// handler for the ResponseWriter.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
