package cache_test

import (
	"context"
	"testing"

	"github.com/samirrijal/mileage/internal/adapters/cache"
	"github.com/samirrijal/mileage/internal/pkg/config"
)

func TestOpen_Memory(t *testing.T) {
	c, err := cache.Open(config.CacheConfig{Backend: "memory", MaxCost: 1 << 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}
}

func TestOpen_Redis(t *testing.T) {
	// go-redis connects lazily, so opening needs no server.
	c, err := cache.Open(config.CacheConfig{Backend: "redis", Addr: "localhost:6379"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Close()
}

func TestOpen_Unknown(t *testing.T) {
	if _, err := cache.Open(config.CacheConfig{Backend: "memcached"}); err == nil {
		t.Fatal("expected error")
	}
}
