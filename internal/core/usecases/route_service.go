package usecases

import (
	"context"
	"fmt"

	"github.com/samirrijal/mileage/internal/core/domain"
	"github.com/samirrijal/mileage/internal/core/ports"
)

// RouteService handles route-related business logic.
type RouteService struct {
	routes   ports.RouteRepository
	agencies ports.AgencyRepository
}

// NewRouteService creates a new RouteService.
func NewRouteService(routes ports.RouteRepository, agencies ports.AgencyRepository) *RouteService {
	return &RouteService{routes: routes, agencies: agencies}
}

// GetByID returns a route by its UUID.
func (s *RouteService) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	return s.routes.GetByID(ctx, id)
}

// ListByAgency returns all routes for a given agency.
func (s *RouteService) ListByAgency(ctx context.Context, agencyID string) ([]domain.Route, error) {
	return s.routes.ListByAgency(ctx, agencyID)
}

// ListByAgencySlug resolves the agency slug and returns its routes.
func (s *RouteService) ListByAgencySlug(ctx context.Context, slug string) ([]domain.Route, error) {
	agency, err := s.agencies.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get agency %s: %w", slug, err)
	}
	return s.routes.ListByAgency(ctx, agency.ID)
}
