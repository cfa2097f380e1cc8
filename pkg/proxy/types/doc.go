// Package types defines the JSON error envelope shared by all HTTP
// handlers and middleware.
package types
