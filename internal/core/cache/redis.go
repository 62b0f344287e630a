package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Cache backed by a redis instance; values are stored as JSON.
// Useful when several server processes should share one frame cache.
type Redis[T any] struct {
	client *redis.Client
}

// NewRedis returns a redis-backed cache using the provided client.
func NewRedis[T any](client *redis.Client) *Redis[T] {
	return &Redis[T]{client: client}
}

func (c *Redis[T]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc[T]) (T, error) {
	var zero T

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var value T
		if err := json.Unmarshal(data, &value); err != nil {
			return zero, fmt.Errorf("error decoding cached value for %s: %w", key, err)
		}
		return value, nil
	}
	if !errors.Is(err, redis.Nil) {
		return zero, fmt.Errorf("error reading cache key %s: %w", key, err)
	}

	value, err := fetch(ctx)
	if err != nil {
		return zero, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("error encoding value for cache key %s: %w", key, err)
	}

	expiration := ttl
	if ttl == NoExpiration {
		expiration = 0
	}
	if err := c.client.Set(ctx, key, encoded, expiration).Err(); err != nil {
		return zero, fmt.Errorf("error writing cache key %s: %w", key, err)
	}

	return value, nil
}

func (c *Redis[T]) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("error deleting cache key %s: %w", key, err)
	}
	return nil
}
