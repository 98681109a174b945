package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "arbscan:response:"

// Redis is a Store backed by a Redis instance, for deployments where several
// scanner processes should share one response cache. TTL handling is delegated
// to Redis key expiry.
type Redis struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewRedis creates a Redis cache on an already-connected client.
func NewRedis(rdb *redis.Client, logger *slog.Logger) *Redis {
	return &Redis{
		rdb:    rdb,
		logger: logger.With(slog.String("component", "redis_cache")),
	}
}

func redisKey(key string) string { return redisKeyPrefix + key }

// GetOrFetch implements Store. Redis read errors degrade to a plain fetch so a
// cache outage slows the pipeline down instead of stopping it; the store after
// a successful fetch is best-effort for the same reason.
func (c *Redis) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch Fetcher) ([]byte, error) {
	body, err := c.rdb.Get(ctx, redisKey(key)).Bytes()
	if err == nil {
		return body, nil
	}
	if !errors.Is(err, redis.Nil) {
		c.logger.Warn("cache read failed, fetching upstream",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	body, err = fetch(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.rdb.Set(ctx, redisKey(key), body, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return body, nil
}

// Clear implements Store by deleting all keys under the cache prefix.
func (c *Redis) Clear(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache: scan keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache: delete %d keys: %w", len(keys), err)
	}
	return nil
}

// Compile-time interface check.
var _ Store = (*Redis)(nil)
