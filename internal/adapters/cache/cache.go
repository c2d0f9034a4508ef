// Package cache opens the configured result cache backend.
package cache

import (
	"context"
	"fmt"

	"github.com/samirrijal/mileage/internal/adapters/memory"
	"github.com/samirrijal/mileage/internal/adapters/redis"
	"github.com/samirrijal/mileage/internal/adapters/valkey"
	"github.com/samirrijal/mileage/internal/core/ports"
	"github.com/samirrijal/mileage/internal/pkg/config"
)

// Backend is a cache that can be health-checked and closed.
type Backend interface {
	ports.CacheService
	Ping(ctx context.Context) error
	Close()
}

// Open creates the backend selected by cfg.Backend.
func Open(cfg config.CacheConfig) (Backend, error) {
	switch cfg.Backend {
	case "valkey":
		c, err := valkey.New(cfg.Addr, cfg.Password)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "redis":
		return redis.New(cfg.Addr, cfg.Password), nil
	case "memory":
		c, err := memory.New(cfg.MaxCost)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}
