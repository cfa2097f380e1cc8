// Package cache provides the bounded, TTL-based in-memory byte cache shared
// by the tile and style proxy paths.
package cache
