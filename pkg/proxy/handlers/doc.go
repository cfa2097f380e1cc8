// Package handlers implements the HTTP endpoints: rewritten styles, tiles,
// proxied references, style conversion, and health. Handlers translate
// domain errors into the shared JSON envelope and record request metrics;
// everything upstream-facing stays in the proxy, style, and convert
// packages.
package handlers
