package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process Cache backed by go-cache. A mutex serializes
// fetches so that concurrent misses for the same key only invoke the fetch
// function once.
type Memory[T any] struct {
	cacheInstance *gocache.Cache
	mu            sync.Mutex
}

// NewMemory returns a memory cache whose entries do not expire unless a ttl
// is supplied on fetch.
func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{cacheInstance: gocache.New(gocache.NoExpiration, 10*time.Second)}
}

func (c *Memory[T]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc[T]) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.cacheInstance.Get(key); ok {
		return cached.(T), nil
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.cacheInstance.Set(key, value, ttl)
	return value, nil
}

func (c *Memory[T]) Delete(_ context.Context, key string) error {
	c.cacheInstance.Delete(key)
	return nil
}
