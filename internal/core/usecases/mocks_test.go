package usecases_test

import (
	"context"
	"sort"
	"sync"

	"github.com/paulmach/orb"

	"github.com/samirrijal/mileage/internal/core/domain"
	"github.com/samirrijal/mileage/internal/core/segmenter"
	"github.com/samirrijal/mileage/internal/pkg/geospatial"
)

// --- Mock RegionRepository ---

type mockRegionRepo struct {
	regions map[string]domain.Region
	listErr error
}

func newRegionRepo(regions ...domain.Region) *mockRegionRepo {
	m := &mockRegionRepo{regions: make(map[string]domain.Region)}
	for _, r := range regions {
		m.regions[r.Name] = r
	}
	return m
}

func (m *mockRegionRepo) Get(ctx context.Context, name string) (*domain.Region, error) {
	r, ok := m.regions[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (m *mockRegionRepo) List(ctx context.Context) ([]domain.Region, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Region, 0, len(m.regions))
	for _, r := range m.regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockRegionRepo) Upsert(ctx context.Context, r *domain.Region) error {
	m.regions[r.Name] = *r
	return nil
}

// --- Mock RouteRepository ---

type mockRouteRepo struct {
	getByIDFn      func(ctx context.Context, id string) (*domain.Route, error)
	listByAgencyFn func(ctx context.Context, agencyID string) ([]domain.Route, error)
}

func (m *mockRouteRepo) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockRouteRepo) ListByAgency(ctx context.Context, agencyID string) ([]domain.Route, error) {
	if m.listByAgencyFn != nil {
		return m.listByAgencyFn(ctx, agencyID)
	}
	return nil, nil
}

// --- Mock AgencyRepository ---

type mockAgencyRepo struct {
	listFn      func(ctx context.Context) ([]domain.Agency, error)
	getBySlugFn func(ctx context.Context, slug string) (*domain.Agency, error)
}

func (m *mockAgencyRepo) Upsert(ctx context.Context, a *domain.Agency) error { return nil }

func (m *mockAgencyRepo) List(ctx context.Context) ([]domain.Agency, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockAgencyRepo) GetBySlug(ctx context.Context, slug string) (*domain.Agency, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, domain.ErrNotFound
}

// --- Mock MileageRepository ---

type mockMileageRepo struct {
	mu    sync.Mutex
	saved map[string]*domain.RouteMileage
	saves int
}

func newMileageRepo() *mockMileageRepo {
	return &mockMileageRepo{saved: make(map[string]*domain.RouteMileage)}
}

func (m *mockMileageRepo) Save(ctx context.Context, rm *domain.RouteMileage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[rm.RouteID] = rm
	m.saves++
	return nil
}

func (m *mockMileageRepo) GetByRoute(ctx context.Context, routeID string) (*domain.RouteMileage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rm, ok := m.saved[routeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rm, nil
}

// --- Mock CacheService ---

type mockCache struct {
	data    map[string][]byte
	deletes []string
}

func newCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	m.deletes = append(m.deletes, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	computed []*domain.RouteMileage
	requests []*domain.MileageRequest
}

func (m *mockPublisher) PublishMileageComputed(ctx context.Context, rm *domain.RouteMileage) error {
	m.computed = append(m.computed, rm)
	return nil
}

func (m *mockPublisher) PublishMileageRequest(ctx context.Context, req *domain.MileageRequest) error {
	m.requests = append(m.requests, req)
	return nil
}

// --- Fixtures ---

func box(name string, minX, minY, maxX, maxY float64) domain.Region {
	return domain.Region{
		Name:     name,
		Boundary: orb.MultiPolygon{{{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}}},
	}
}

var (
	west = box("west", -1, -1, 0, 1)
	east = box("east", 0, -1, 1, 1)
)

func newSegmenter() *segmenter.Segmenter {
	return segmenter.New(geospatial.NewEngine(0), segmenter.WithSegments(true))
}
