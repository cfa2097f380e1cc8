package ratelimit

import (
	"math/rand"
	"sync"
	"time"
)

// Decision is the result of a rate limit check.
type Decision struct {
	// Allowed indicates if the request is permitted.
	Allowed bool

	// Remaining is how many requests remain in the window.
	Remaining int

	// RetryAfter suggests how long to wait before retrying. Set only
	// when the request was denied; callers surface it as a Retry-After
	// header.
	RetryAfter time.Duration
}

// ClientLimiter enforces a per-client sliding-window request limit. Each
// client id maps to the timestamps of its requests inside the trailing
// window; timestamps older than the window are pruned before the count is
// compared to the limit, never after.
//
// The limiter is advisory and best-effort: its purpose is abuse dampening,
// not billing-grade metering.
type ClientLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	clients map[string][]time.Time

	// sweepChance is the probability (out of sweepDenominator) that a
	// call to Allow also garbage-collects idle clients.
	sweepChance int
}

const sweepDenominator = 100

// NewClientLimiter creates a limiter allowing limit requests per client per
// trailing window.
func NewClientLimiter(limit int, window time.Duration) *ClientLimiter {
	return &ClientLimiter{
		limit:       limit,
		window:      window,
		clients:     make(map[string][]time.Time),
		sweepChance: 1,
	}
}

// Allow records and permits a request for clientID unless the client is at
// or over the limit for the current window.
func (l *ClientLimiter) Allow(clientID string) Decision {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Opportunistic GC of idle clients on ~1% of calls. Bounded growth
	// is the property that matters, not exact timing.
	if rand.Intn(sweepDenominator) < l.sweepChance {
		l.sweepLocked(now)
	}

	recent := pruneOlder(l.clients[clientID], now.Add(-l.window))

	if len(recent) >= l.limit {
		l.clients[clientID] = recent
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: l.window,
		}
	}

	recent = append(recent, now)
	l.clients[clientID] = recent
	return Decision{
		Allowed:   true,
		Remaining: l.limit - len(recent),
	}
}

// Sweep drops all clients whose windows are empty and returns how many were
// removed. Called by the maintenance scheduler; Allow also sweeps
// probabilistically.
func (l *ClientLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(time.Now())
}

// Clients returns the number of tracked clients.
func (l *ClientLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// sweepLocked removes clients with no timestamps left in the window.
// Caller must hold the mutex.
func (l *ClientLimiter) sweepLocked(now time.Time) int {
	cutoff := now.Add(-l.window)
	removed := 0
	for id, stamps := range l.clients {
		if len(pruneOlder(stamps, cutoff)) == 0 {
			delete(l.clients, id)
			removed++
		}
	}
	return removed
}

// pruneOlder returns the suffix of stamps at or after cutoff. Timestamps
// are appended in order, so a linear scan from the front suffices.
func pruneOlder(stamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && stamps[idx].Before(cutoff) {
		idx++
	}
	return stamps[idx:]
}
