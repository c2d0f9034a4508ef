package usecases

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/samirrijal/mileage/internal/core/domain"
	"github.com/samirrijal/mileage/internal/core/ports"
)

// AgencyService handles agency-related business logic.
type AgencyService struct {
	agencies ports.AgencyRepository
	routes   ports.RouteRepository
	results  ports.MileageRepository
}

// NewAgencyService creates a new AgencyService.
func NewAgencyService(agencies ports.AgencyRepository, routes ports.RouteRepository, results ports.MileageRepository) *AgencyService {
	return &AgencyService{agencies: agencies, routes: routes, results: results}
}

// List returns all agencies.
func (s *AgencyService) List(ctx context.Context) ([]domain.Agency, error) {
	return s.agencies.List(ctx)
}

// GetBySlug returns an agency by slug.
func (s *AgencyService) GetBySlug(ctx context.Context, slug string) (*domain.Agency, error) {
	return s.agencies.GetBySlug(ctx, slug)
}

// Mileage sums the latest saved mileage of every route of an agency per
// region, converted to unit. Routes never computed, or computed in degrees
// when a geodesic unit is asked for, are listed as missing.
func (s *AgencyService) Mileage(ctx context.Context, slug string, unit domain.Unit) (*domain.AgencyMileage, error) {
	agency, err := s.agencies.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get agency %s: %w", slug, err)
	}
	routes, err := s.routes.ListByAgency(ctx, agency.ID)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}

	out := &domain.AgencyMileage{Agency: agency.Slug, Unit: unit}
	totals := make(map[string]float64)
	for _, r := range routes {
		m, err := s.results.GetByRoute(ctx, r.ID)
		if errors.Is(err, domain.ErrNotFound) {
			out.Missing = append(out.Missing, r.ID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get mileage of route %s: %w", r.ID, err)
		}
		if !addRoute(totals, m, unit) {
			out.Missing = append(out.Missing, r.ID)
			continue
		}
		out.Routes++
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out.Regions = append(out.Regions, domain.RegionMileage{
			Region: name,
			Length: totals[name],
			Status: domain.RegionStatusOK,
		})
	}
	return out, nil
}

func addRoute(totals map[string]float64, m *domain.RouteMileage, unit domain.Unit) bool {
	if m.Result == nil {
		return false
	}
	if _, ok := m.Unit.Convert(0, unit); !ok {
		return false
	}
	for _, e := range m.Result.Regions {
		if e.Status != domain.RegionStatusOK {
			continue
		}
		v, _ := m.Unit.Convert(e.Length, unit)
		totals[e.Region] += v
	}
	return true
}
