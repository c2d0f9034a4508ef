package workflows

import (
	"sort"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/mileage/internal/core/domain"
)

// AgencyMileageInput is the input for the agency mileage workflow.
type AgencyMileageInput struct {
	AgencySlug string
	Regions    []string
	Unit       domain.Unit
}

// RouteFailure records a route whose computation failed.
type RouteFailure struct {
	RouteID string
	Error   string
}

// AgencyMileageSummary is the outcome of an agency mileage run.
type AgencyMileageSummary struct {
	AgencySlug string
	Computed   []string
	Failed     []RouteFailure
	Mileage    *domain.AgencyMileage
}

// AgencyMileageWorkflow recomputes the mileage of every route of an agency
// and aggregates the saved results. A route that fails is recorded and does
// not stop the others; geometry failures are not retried.
func AgencyMileageWorkflow(ctx workflow.Context, input AgencyMileageInput) (*AgencyMileageSummary, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting agency mileage workflow", "agency", input.AgencySlug)

	listCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})
	computeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	unit := input.Unit
	if unit == "" {
		unit = domain.UnitKilometers
	}

	// Step 1: List routes
	var routeIDs []string
	if err := workflow.ExecuteActivity(listCtx, "ListAgencyRoutes", input.AgencySlug).Get(ctx, &routeIDs); err != nil {
		return nil, err
	}

	// Step 2: Compute every route concurrently
	futures := make(map[string]workflow.Future, len(routeIDs))
	for _, id := range routeIDs {
		futures[id] = workflow.ExecuteActivity(computeCtx, "ComputeRouteMileage", id, input.Regions, unit)
	}

	summary := &AgencyMileageSummary{AgencySlug: input.AgencySlug}
	for _, id := range routeIDs {
		var total float64
		if err := futures[id].Get(ctx, &total); err != nil {
			logger.Warn("route mileage failed", "route_id", id, "error", err)
			summary.Failed = append(summary.Failed, RouteFailure{RouteID: id, Error: err.Error()})
			continue
		}
		summary.Computed = append(summary.Computed, id)
	}
	sort.Strings(summary.Computed)

	// Step 3: Aggregate
	if err := workflow.ExecuteActivity(listCtx, "AggregateAgencyMileage", input.AgencySlug, unit).Get(ctx, &summary.Mileage); err != nil {
		return nil, err
	}

	logger.Info("Agency mileage computed",
		"agency", input.AgencySlug,
		"computed", len(summary.Computed),
		"failed", len(summary.Failed),
	)
	return summary, nil
}
