// Package ratelimit provides the per-client sliding-window request limiter
// applied in front of the style and tile proxy paths.
package ratelimit
