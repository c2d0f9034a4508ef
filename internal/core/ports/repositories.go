package ports

import (
	"context"

	"github.com/samirrijal/mileage/internal/core/domain"
)

// AgencyRepository persists agencies.
type AgencyRepository interface {
	Upsert(ctx context.Context, agency *domain.Agency) error
	GetBySlug(ctx context.Context, slug string) (*domain.Agency, error)
	List(ctx context.Context) ([]domain.Agency, error)
}

// RouteRepository persists routes and their shapes.
type RouteRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Route, error)
	ListByAgency(ctx context.Context, agencyID string) ([]domain.Route, error)
}

// RegionRepository resolves region names to boundaries.
type RegionRepository interface {
	// Get returns domain.ErrNotFound when no region has the name.
	Get(ctx context.Context, name string) (*domain.Region, error)
	// List returns every region, sorted by name.
	List(ctx context.Context) ([]domain.Region, error)
	Upsert(ctx context.Context, region *domain.Region) error
}

// MileageRepository persists computed route mileage.
type MileageRepository interface {
	Save(ctx context.Context, m *domain.RouteMileage) error
	// GetByRoute returns the latest computation for a route.
	GetByRoute(ctx context.Context, routeID string) (*domain.RouteMileage, error)
}
