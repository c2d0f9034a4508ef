package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/mileage/internal/core/domain"
	"github.com/samirrijal/mileage/internal/core/usecases"
)

func TestRouteService_GetByID(t *testing.T) {
	repo := &mockRouteRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Route, error) {
			return &domain.Route{ID: id, ShortName: "A3247", LongName: "Bilbao-Gasteiz"}, nil
		},
	}

	svc := usecases.NewRouteService(repo, &mockAgencyRepo{})
	route, err := svc.GetByID(context.Background(), "route-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route.ShortName != "A3247" {
		t.Errorf("expected A3247, got %s", route.ShortName)
	}
}

func TestRouteService_ListByAgency(t *testing.T) {
	repo := &mockRouteRepo{
		listByAgencyFn: func(ctx context.Context, agencyID string) ([]domain.Route, error) {
			return []domain.Route{
				{ShortName: "A3247"},
				{ShortName: "A3932"},
			}, nil
		},
	}

	svc := usecases.NewRouteService(repo, &mockAgencyRepo{})
	routes, err := svc.ListByAgency(context.Background(), "bizkaibus")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}
}

func TestRouteService_ListByAgencySlug(t *testing.T) {
	var gotAgencyID string
	routes := &mockRouteRepo{
		listByAgencyFn: func(ctx context.Context, agencyID string) ([]domain.Route, error) {
			gotAgencyID = agencyID
			return []domain.Route{{ShortName: "A3247"}}, nil
		},
	}
	agencies := &mockAgencyRepo{
		getBySlugFn: func(ctx context.Context, slug string) (*domain.Agency, error) {
			if slug != "bizkaibus" {
				return nil, domain.ErrNotFound
			}
			return &domain.Agency{ID: "agency-uuid", Slug: slug}, nil
		},
	}

	svc := usecases.NewRouteService(routes, agencies)
	got, err := svc.ListByAgencySlug(context.Background(), "bizkaibus")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || gotAgencyID != "agency-uuid" {
		t.Errorf("expected routes of agency-uuid, got %d routes for %q", len(got), gotAgencyID)
	}

	if _, err := svc.ListByAgencySlug(context.Background(), "unknown"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
