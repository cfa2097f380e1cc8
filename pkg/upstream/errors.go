package upstream

import (
	"errors"
	"fmt"
	"time"
)

// StatusError represents a non-2xx upstream response. It carries the status
// code but never the upstream body, which may contain credentials or
// internal hostnames.
type StatusError struct {
	// Host is the upstream host that returned the error.
	Host string

	// StatusCode is the HTTP status code.
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %q returned status %d", e.Host, e.StatusCode)
}

// NotFoundError represents an upstream 404. Tile callers treat it distinctly
// from other failures so they can render a blank tile instead of erroring.
type NotFoundError struct {
	// Host is the upstream host.
	Host string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("upstream %q resource not found", e.Host)
}

// TimeoutError represents a fetch that exceeded its configured timeout.
type TimeoutError struct {
	// Host is the upstream host.
	Host string

	// Timeout is the configured timeout duration.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upstream %q fetch timeout after %s", e.Host, e.Timeout)
}

// IsNotFound reports whether err is an upstream NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsTimeout reports whether err is an upstream TimeoutError.
func IsTimeout(err error) bool {
	var to *TimeoutError
	return errors.As(err, &to)
}
