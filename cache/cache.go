// Package cache provides the TTL result cache used to short-circuit repeated
// queries, plus the deterministic fingerprint used as its key.
//
// Entries carry their creation time; freshness is decided at read time
// against the caller supplied ttl. Stale entries are never returned but are
// not removed by reads.
package cache

import (
	"context"
	"math"
	"time"
)

// Cache is a TTL key/value store shared by concurrent queries.
type Cache[V any] interface {
	// Get returns the value stored under key if it is younger than ttl.
	Get(ctx context.Context, key string, ttl time.Duration) (V, bool, error)
	// Set stores or overwrites value under key with a fresh timestamp.
	Set(ctx context.Context, key string, value V) error
	// Clear removes all entries and resets the hit/miss counters.
	Clear(ctx context.Context) error
	// Stats reports counters accumulated since the last Clear.
	Stats(ctx context.Context) (Stats, error)
}

// Stats summarizes cache effectiveness.
type Stats struct {
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
	TotalRequests  int64   `json:"total_requests"`
	HitRatePercent float64 `json:"hit_rate_percent"`
	Entries        int     `json:"cached_entries"`
}

// newStats derives totals and the hit rate, rounded to two decimals.
func newStats(hits, misses int64, entries int) Stats {
	total := hits + misses
	rate := 0.0
	if total > 0 {
		rate = math.Round(float64(hits)/float64(total)*100*100) / 100
	}
	return Stats{
		Hits:           hits,
		Misses:         misses,
		TotalRequests:  total,
		HitRatePercent: rate,
		Entries:        entries,
	}
}

// GetOrCompute returns the fresh cached value for key or computes, stores
// and returns it. Compute errors are returned and nothing is stored. A
// failing cache read is treated as a miss; a failing write is ignored.
func GetOrCompute[V any](ctx context.Context, c Cache[V], key string, ttl time.Duration, compute func(ctx context.Context) (V, error)) (V, bool, error) {
	if v, ok, err := c.Get(ctx, key, ttl); err == nil && ok {
		return v, true, nil
	}

	v, err := compute(ctx)
	if err != nil {
		var zero V
		return zero, false, err
	}

	_ = c.Set(ctx, key, v)

	return v, false, nil
}
