// Package maintenance schedules background cache and rate-limiter sweeps.
package maintenance
