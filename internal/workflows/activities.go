package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/mileage/internal/core/domain"
	"github.com/samirrijal/mileage/internal/core/usecases"
)

// MileageActivities holds the activity implementations for the agency
// mileage workflow.
type MileageActivities struct {
	Mileage  *usecases.MileageService
	Routes   *usecases.RouteService
	Agencies *usecases.AgencyService
}

// ListAgencyRoutes returns the IDs of an agency's routes that have a shape.
func (a *MileageActivities) ListAgencyRoutes(ctx context.Context, slug string) ([]string, error) {
	routes, err := a.Routes.ListByAgencySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("list routes of %s: %w", slug, err)
	}
	ids := make([]string, 0, len(routes))
	for _, r := range routes {
		if r.Shape == nil {
			slog.WarnContext(ctx, "route has no shape, skipping", "agency", slug, "route_id", r.ID)
			continue
		}
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// ComputeRouteMileage recomputes and saves the mileage of one route. It
// returns the total length found inside the requested regions.
func (a *MileageActivities) ComputeRouteMileage(ctx context.Context, routeID string, regions []string, unit domain.Unit) (float64, error) {
	m, err := a.Mileage.Refresh(ctx, routeID, regions, unit)
	if err != nil {
		return 0, fmt.Errorf("compute route %s: %w", routeID, err)
	}
	return m.Result.Total(), nil
}

// AggregateAgencyMileage sums the saved mileage of an agency's routes.
func (a *MileageActivities) AggregateAgencyMileage(ctx context.Context, slug string, unit domain.Unit) (*domain.AgencyMileage, error) {
	m, err := a.Agencies.Mileage(ctx, slug, unit)
	if err != nil {
		return nil, fmt.Errorf("aggregate mileage of %s: %w", slug, err)
	}
	return m, nil
}
