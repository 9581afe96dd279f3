// Package cache is the Redis-backed read-through cache.
//
// Values are stored as JSON. Every method is safe on a nil *Store or a Store
// without a client, so the app keeps serving (uncached) when Redis is down.
// Concurrent misses on the same key are collapsed with singleflight, so a
// cold product page costs one query no matter how many requests hit it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shashiranjanraj/kashvi-shop/config"
	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
	"github.com/shashiranjanraj/kashvi-shop/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

const driver = "redis"

// Store wraps a Redis client with JSON encoding and key prefixing.
type Store struct {
	rdb    redis.Cmdable
	prefix string
	group  singleflight.Group
}

// New wraps rdb. A nil rdb yields a Store that always misses.
func New(rdb redis.Cmdable, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix}
}

// Connect dials Redis with the configured address and verifies it with a
// ping. On failure the returned Store is still usable (it always misses)
// alongside the error, so the caller can log and carry on.
func Connect(ctx context.Context) (*Store, *redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr(),
		Password: config.RedisPassword(),
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return New(nil, "shop:"), nil, fmt.Errorf("cache: redis ping: %w", err)
	}
	return New(rdb, "shop:"), rdb, nil
}

func (s *Store) enabled() bool { return s != nil && s.rdb != nil }

func (s *Store) key(k string) string { return s.prefix + k }

// Get fills dest from the cache. It reports false on a miss and on any
// Redis or decode error.
func (s *Store) Get(ctx context.Context, key string, dest any) bool {
	if !s.enabled() {
		return false
	}
	raw, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.WithCtx(ctx).Warn("cache: get failed", "key", key, "error", err)
		}
		metrics.CacheMisses.WithLabelValues(driver).Inc()
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		metrics.CacheMisses.WithLabelValues(driver).Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues(driver).Inc()
	return true
}

// Set stores value under key for ttl.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !s.enabled() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return s.rdb.Set(ctx, s.key(key), data, ttl).Err()
}

// Forget removes keys.
func (s *Store) Forget(ctx context.Context, keys ...string) error {
	if !s.enabled() || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	return s.rdb.Del(ctx, full...).Err()
}

// Remember is cache-aside with miss collapsing: a hit decodes into dest; a
// miss runs load once per key across concurrent callers, caches the result
// for ttl and decodes it into dest. Cache write failures are logged, never
// returned; load errors are returned and not cached.
func (s *Store) Remember(ctx context.Context, key string, ttl time.Duration, dest any, load func(ctx context.Context) (any, error)) error {
	if s.Get(ctx, key, dest) {
		return nil
	}

	var group *singleflight.Group
	if s != nil {
		group = &s.group
	} else {
		group = &singleflight.Group{}
	}

	raw, err, _ := group.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("cache: encode %s: %w", key, err)
		}
		if s.enabled() {
			if err := s.rdb.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
				logger.WithCtx(ctx).Warn("cache: set failed", "key", key, "error", err)
			}
		}
		return data, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), dest)
}
