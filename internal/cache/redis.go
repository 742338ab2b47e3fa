package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kart-commerce/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// scanBatch is the COUNT hint used when walking keys for prefix invalidation.
const scanBatch = 100

// RedisCache implements Cache on a Redis client.
type RedisCache struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("redis cache connected")

	return NewRedisCacheFromClient(client, logger), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, logger zerolog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: logger.With().Str("component", "redis-cache").Logger(),
	}
}

// Get returns the cached value.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cache key %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key for ttl.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}
	return nil
}

// Invalidate deletes keys.
func (c *RedisCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache keys: %w", err)
	}
	c.logger.Debug().Strs("keys", keys).Msg("cache keys invalidated")
	return nil
}

// InvalidatePrefix deletes every key starting with prefix using SCAN, so the
// server is never blocked by KEYS.
func (c *RedisCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()

	var batch []string
	deleted := 0
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to invalidate cache prefix %s: %w", prefix, err)
			}
			deleted += len(batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache prefix %s: %w", prefix, err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to invalidate cache prefix %s: %w", prefix, err)
		}
		deleted += len(batch)
	}

	c.logger.Debug().Str("prefix", prefix).Int("deleted", deleted).Msg("cache prefix invalidated")
	return nil
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
