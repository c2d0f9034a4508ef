package usecases

import (
	"context"
	"fmt"

	"github.com/samirrijal/mileage/internal/core/domain"
	"github.com/samirrijal/mileage/internal/core/ports"
	"github.com/samirrijal/mileage/internal/pkg/geospatial"
)

// RegionService exposes the region dataset.
type RegionService struct {
	regions ports.RegionRepository
}

// NewRegionService creates a new RegionService.
func NewRegionService(regions ports.RegionRepository) *RegionService {
	return &RegionService{regions: regions}
}

// Get returns a region with its boundary.
func (s *RegionService) Get(ctx context.Context, name string) (*domain.Region, error) {
	return s.regions.Get(ctx, name)
}

// List returns a summary of every region, sorted by name.
func (s *RegionService) List(ctx context.Context) ([]domain.RegionSummary, error) {
	regions, err := s.regions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	out := make([]domain.RegionSummary, len(regions))
	for i := range regions {
		out[i] = SummarizeRegion(&regions[i])
	}
	return out, nil
}

// Summary describes one region.
func (s *RegionService) Summary(ctx context.Context, name string) (*domain.RegionSummary, error) {
	r, err := s.regions.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	sum := SummarizeRegion(r)
	return &sum, nil
}

// SummarizeRegion counts the polygons, holes and vertices of a region and
// measures its bounds and geodesic area.
func SummarizeRegion(r *domain.Region) domain.RegionSummary {
	sum := domain.RegionSummary{
		Name:       r.Name,
		Polygons:   len(r.Boundary),
		Properties: r.Properties,
	}
	for _, poly := range r.Boundary {
		if len(poly) > 1 {
			sum.Holes += len(poly) - 1
		}
		for _, ring := range poly {
			sum.Vertices += len(ring)
		}
	}
	if len(r.Boundary) > 0 {
		sum.Bounds = domain.BoundsFromOrb(r.Boundary.Bound())
		sum.AreaKm2 = geospatial.Area(r.Boundary) / 1e6
	}
	return sum
}

// All returns every region with its boundary.
func (s *RegionService) All(ctx context.Context) ([]domain.Region, error) {
	return s.regions.List(ctx)
}
