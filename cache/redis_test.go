//go:build redis

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache[V any](t *testing.T, now func() time.Time) *RedisCache[V] {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("Skipping Redis tests. Set REDIS_TEST_ADDR to run.")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedisCache[V](client, func(o *RedisOptions) {
		o.Prefix = "stockmesh:test:" + t.Name() + ":"
		if now != nil {
			o.Now = now
		}
	})
	require.NoError(t, c.Clear(context.Background()))
	t.Cleanup(func() { _ = c.Clear(context.Background()) })

	return c
}

func TestRedisCache_RoundTripAndStats(t *testing.T) {
	ctx := context.Background()
	c := newTestRedisCache[map[string]any](t, nil)

	require.NoError(t, c.Set(ctx, "k", map[string]any{"answer": "42"}))

	v, ok, err := c.Get(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "42", v["answer"])

	_, ok, err = c.Get(ctx, "missing", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)

	require.NoError(t, c.Clear(ctx))
	stats, _ = c.Stats(ctx)
	assert.Equal(t, Stats{}, stats)
}

func TestRedisCache_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestRedisCache[string](t, clock.Now)

	require.NoError(t, c.Set(ctx, "k", "v"))
	clock.Advance(2 * time.Minute)

	_, ok, err := c.Get(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}
