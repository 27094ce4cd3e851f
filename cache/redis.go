package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig describes the Redis connection used by RedisCache.
type RedisConfig struct {
	URL          string `split_words:"true" default:"redis://localhost:6379/0"`
	ReadTimeout  int    `split_words:"true" default:"3"`
	WriteTimeout int    `split_words:"true" default:"3"`
	DialTimeout  int    `split_words:"true" default:"5"`
}

// NewClient parses the URL, applies the timeouts (seconds) and pings the
// server.
func (c RedisConfig) NewClient(ctx context.Context) (*redis.Client, error) {
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.ReadTimeout = time.Duration(c.ReadTimeout) * time.Second
	opts.WriteTimeout = time.Duration(c.WriteTimeout) * time.Second
	opts.DialTimeout = time.Duration(c.DialTimeout) * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

type redisEnvelope[V any] struct {
	Value     V     `json:"v"`
	CreatedAt int64 `json:"t"` // unix nanoseconds
}

// RedisCache is a Cache shared across processes through Redis. Values are
// stored as JSON under a key prefix; hit/miss counters are local to the
// process.
type RedisCache[V any] struct {
	client     redis.UniversalClient
	prefix     string
	expiration time.Duration
	now        func() time.Time
	hits       atomic.Int64
	misses     atomic.Int64
}

// RedisOptions configures a RedisCache.
type RedisOptions struct {
	// Prefix namespaces every key (default "stockmesh:cache:").
	Prefix string
	// Expiration lets Redis reclaim entries after this age; 0 keeps them
	// until Clear. Freshness is still decided by the ttl passed to Get.
	Expiration time.Duration
	// Now is the time source.
	Now func() time.Time
}

// NewRedisCache creates a Redis backed cache.
func NewRedisCache[V any](client redis.UniversalClient, optFns ...func(o *RedisOptions)) *RedisCache[V] {
	opts := RedisOptions{Prefix: "stockmesh:cache:", Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &RedisCache[V]{
		client:     client,
		prefix:     opts.Prefix,
		expiration: opts.Expiration,
		now:        opts.Now,
	}
}

// Get implements Cache.
func (c *RedisCache[V]) Get(ctx context.Context, key string, ttl time.Duration) (V, bool, error) {
	var zero V

	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		c.misses.Add(1)
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var env redisEnvelope[V]
	if err := json.Unmarshal(raw, &env); err != nil {
		c.misses.Add(1)
		return zero, false, fmt.Errorf("decode cached %s: %w", key, err)
	}

	if c.now().Sub(time.Unix(0, env.CreatedAt)) >= ttl {
		c.misses.Add(1)
		return zero, false, nil
	}

	c.hits.Add(1)

	return env.Value, true, nil
}

// Set implements Cache.
func (c *RedisCache[V]) Set(ctx context.Context, key string, value V) error {
	raw, err := json.Marshal(redisEnvelope[V]{Value: value, CreatedAt: c.now().UnixNano()})
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	if err := c.client.Set(ctx, c.prefix+key, raw, c.expiration).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Clear implements Cache. Only keys under the configured prefix are removed.
func (c *RedisCache[V]) Clear(ctx context.Context) error {
	keys, err := c.keys(ctx)
	if err != nil {
		return err
	}

	const batch = 500
	for start := 0; start < len(keys); start += batch {
		end := min(start+batch, len(keys))
		if err := c.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}

	c.hits.Store(0)
	c.misses.Store(0)

	return nil
}

// Stats implements Cache.
func (c *RedisCache[V]) Stats(ctx context.Context) (Stats, error) {
	keys, err := c.keys(ctx)
	if err != nil {
		return Stats{}, err
	}
	return newStats(c.hits.Load(), c.misses.Load(), len(keys)), nil
}

func (c *RedisCache[V]) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}
