// Package cache provides a small key-value cache abstraction with an
// in-memory backend and a redis backend, selected by server configuration.
package cache

import (
	"context"
	"time"
)

// FetchFunc produces a value for a key on a cache miss.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Cache is a typed key-value store with expiration. Implementations must be
// safe for concurrent use.
type Cache[T any] interface {
	// GetOrFetch retrieves the value under key, calling fetch and storing its
	// result with the given ttl if the key is not cached.
	GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc[T]) (T, error)

	// Delete removes a key from the cache. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error
}

// NoExpiration disables the ttl for a stored value.
const NoExpiration time.Duration = -1
