// Package memory implements the result cache in process memory.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/samirrijal/mileage/internal/core/domain"
)

// Cache implements ports.CacheService on a ristretto cache. Entries cost
// their size in bytes.
type Cache struct {
	store *ristretto.Cache
}

// New creates a cache holding up to maxCost bytes.
func New(maxCost int64) (*Cache, error) {
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxCost / 100,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto: %w", err)
	}
	return &Cache{store: store}, nil
}

// Get retrieves a value by key. A missing key yields domain.ErrNotFound.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, fmt.Errorf("cache key %s: %w", key, domain.ErrNotFound)
	}
	return v.([]byte), nil
}

// Set stores a copy of value. Writes are applied asynchronously and may be
// dropped under contention.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	v := append([]byte(nil), value...)
	var ttl time.Duration
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	c.store.SetWithTTL(key, v, int64(len(v)), ttl)
	return nil
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.store.Del(key)
	return nil
}

// Wait blocks until pending writes are applied.
func (c *Cache) Wait() { c.store.Wait() }

// Ping always succeeds.
func (c *Cache) Ping(ctx context.Context) error { return nil }

// Close releases the cache.
func (c *Cache) Close() { c.store.Close() }
