package ports

import (
	"context"

	"github.com/samirrijal/mileage/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishMileageComputed(ctx context.Context, m *domain.RouteMileage) error
	PublishMileageRequest(ctx context.Context, req *domain.MileageRequest) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeMileageRequests(ctx context.Context, handler func(ctx context.Context, req *domain.MileageRequest) error) error
	SubscribeMileageComputed(ctx context.Context, handler func(ctx context.Context, m *domain.RouteMileage) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
