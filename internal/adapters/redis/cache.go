// Package redis implements the result cache on a Redis server.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/samirrijal/mileage/internal/core/domain"
)

// Cache implements ports.CacheService with go-redis.
type Cache struct {
	client *redis.Client
}

// New opens a Redis client. The connection is established lazily.
func New(addr, password string) *Cache {
	return &Cache{client: redis.NewClient(&redis.Options{Addr: addr, Password: password})}
}

// Get retrieves a value by key. A missing key yields domain.ErrNotFound.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("cache key %s: %w", key, domain.ErrNotFound)
	}
	return b, err
}

// Set stores a value with a TTL in seconds. A non-positive TTL never expires.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	var ttl time.Duration
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Ping checks connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client.
func (c *Cache) Close() {
	_ = c.client.Close()
}
