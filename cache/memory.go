package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry[V any] struct {
	value     V
	createdAt time.Time
}

// MemoryCache is a process-local Cache guarded by a single mutex. The zero
// value is not usable; construct with NewMemoryCache.
type MemoryCache[V any] struct {
	mu      sync.Mutex
	entries map[string]memoryEntry[V]
	hits    int64
	misses  int64
	now     func() time.Time
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	now func() time.Time
}

// WithClock overrides the time source. Tests use it to simulate expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(o *memoryOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache[V any](opts ...MemoryOption) *MemoryCache[V] {
	o := memoryOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryCache[V]{
		entries: make(map[string]memoryEntry[V]),
		now:     o.now,
	}
}

// Get implements Cache.
func (c *MemoryCache[V]) Get(_ context.Context, key string, ttl time.Duration) (V, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.now().Sub(e.createdAt) < ttl {
		c.hits++
		return e.value, true, nil
	}

	c.misses++
	var zero V
	return zero, false, nil
}

// Set implements Cache.
func (c *MemoryCache[V]) Set(_ context.Context, key string, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry[V]{value: value, createdAt: c.now()}
	return nil
}

// Clear implements Cache.
func (c *MemoryCache[V]) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]memoryEntry[V])
	c.hits = 0
	c.misses = 0
	return nil
}

// Stats implements Cache. Entries counts stored entries, stale or not.
func (c *MemoryCache[V]) Stats(_ context.Context) (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return newStats(c.hits, c.misses, len(c.entries)), nil
}

// Prune drops entries older than ttl and returns how many were removed.
func (c *MemoryCache[V]) Prune(ttl time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.createdAt) >= ttl {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}
