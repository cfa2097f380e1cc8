package cache

import (
	"sync"
	"time"
)

// Entry is one cached payload.
type Entry struct {
	// Payload is the raw response body.
	Payload []byte

	// ContentType is the media type the payload was fetched with.
	ContentType string

	// ExpiresAt is the absolute expiry timestamp. An entry is never
	// served past this instant; an expired entry behaves exactly like a
	// miss.
	ExpiresAt time.Time

	// lastAccessedAt drives LRU eviction.
	lastAccessedAt time.Time
}

// ByteCache is a thread-safe, bounded, TTL-based key to bytes store used by
// the tile and style paths. The bound is a fixed entry count; when full,
// the least recently accessed entry is evicted. Expired entries are removed
// lazily on Get and by SweepExpired, with an optional background cleanup
// goroutine.
type ByteCache struct {
	entries    map[string]*Entry
	maxEntries int

	mu     sync.RWMutex
	stopCh chan struct{}
	once   sync.Once
}

// New creates a byte cache bounded to maxEntries. If cleanupInterval is
// positive a background goroutine sweeps expired entries at that interval;
// call Close to stop it.
func New(maxEntries int, cleanupInterval time.Duration) *ByteCache {
	c := &ByteCache{
		entries:    make(map[string]*Entry),
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go c.cleanupLoop(cleanupInterval)
	}

	return c
}

// Get returns the entry for a key. Expired entries are deleted and reported
// as misses.
func (c *ByteCache) Get(key string) (*Entry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	expired := ok && time.Now().After(entry.ExpiresAt)
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-check under the write lock; another goroutine may have replaced
	// the entry between locks.
	entry, ok = c.entries[key]
	if !ok {
		return nil, false
	}
	if expired || time.Now().After(entry.ExpiresAt) {
		delete(c.entries, key)
		return nil, false
	}

	entry.lastAccessedAt = time.Now()
	return entry, true
}

// Set stores a payload under key with the given TTL, evicting the least
// recently accessed entry when the cache is full.
func (c *ByteCache) Set(key string, payload []byte, contentType string, ttl time.Duration) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			c.evictLRULocked()
		}
	}

	c.entries[key] = &Entry{
		Payload:        payload,
		ContentType:    contentType,
		ExpiresAt:      now.Add(ttl),
		lastAccessedAt: now,
	}
}

// Delete removes an entry.
func (c *ByteCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the current number of entries, expired ones included.
func (c *ByteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// SweepExpired removes all expired entries and returns how many were
// dropped. Called by the maintenance scheduler.
func (c *ByteCache) SweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Close stops the background cleanup goroutine, if any.
func (c *ByteCache) Close() {
	c.once.Do(func() { close(c.stopCh) })
}

// evictLRULocked removes the least recently accessed entry.
// Caller must hold the write lock.
func (c *ByteCache) evictLRULocked() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.lastAccessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.lastAccessedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *ByteCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.SweepExpired()
		case <-c.stopCh:
			return
		}
	}
}
