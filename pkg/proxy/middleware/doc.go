// Package middleware provides HTTP middleware for cross-cutting concerns:
// request IDs, structured request logging, CORS, panic recovery, per-client
// rate limiting, and request deadlines.
//
// The server chains them outermost-first:
//
//	handler = Recovery(RequestID(Logging(CORS(RateLimit(Timeout(handler))))))
//
// Rate limiting is applied only to the proxying routes (style, tiles, ref);
// health and metrics endpoints bypass it.
package middleware
