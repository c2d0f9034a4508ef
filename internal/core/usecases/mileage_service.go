package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/mileage/internal/core/domain"
	"github.com/samirrijal/mileage/internal/core/ports"
	"github.com/samirrijal/mileage/internal/core/segmenter"
	"github.com/samirrijal/mileage/internal/pkg/metrics"
	"github.com/samirrijal/mileage/internal/pkg/telemetry"
)

// ComputeRequest asks for the mileage of an ad hoc line. An empty Regions
// list means every region in the dataset.
type ComputeRequest struct {
	Line            domain.Polyline
	Regions         []string
	Unit            domain.Unit
	IncludeSegments bool
}

// MileageOptions tunes a MileageService. With KeepSegments, sub-segments are
// returned even when a request does not ask for them.
type MileageOptions struct {
	Policy          domain.MissingRegionPolicy
	DefaultUnit     domain.Unit
	CacheTTLSeconds int
	KeepSegments    bool
}

// MileageService computes per-region mileage for lines and routes.
type MileageService struct {
	regions   ports.RegionRepository
	routes    ports.RouteRepository
	results   ports.MileageRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
	seg       *segmenter.Segmenter
	opts      MileageOptions
	now       func() time.Time
}

// NewMileageService creates a new MileageService. The segmenter must keep
// sub-segments; they are dropped from results that did not ask for them.
// cache and publisher may be nil.
func NewMileageService(
	regions ports.RegionRepository,
	routes ports.RouteRepository,
	results ports.MileageRepository,
	cache ports.CacheService,
	publisher ports.EventPublisher,
	seg *segmenter.Segmenter,
	opts MileageOptions,
) *MileageService {
	if opts.Policy == "" {
		opts.Policy = domain.MissingRegionSkip
	}
	if opts.DefaultUnit == "" {
		opts.DefaultUnit = domain.UnitKilometers
	}
	if opts.CacheTTLSeconds <= 0 {
		opts.CacheTTLSeconds = 3600
	}
	return &MileageService{
		regions:   regions,
		routes:    routes,
		results:   results,
		cache:     cache,
		publisher: publisher,
		seg:       seg,
		opts:      opts,
		now:       time.Now,
	}
}

// Compute resolves the requested regions and measures the line inside each.
// Regions missing from the dataset are reported as unresolved entries or fail
// the call, depending on the configured policy.
func (s *MileageService) Compute(ctx context.Context, req ComputeRequest) (*domain.MileageResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanComputeMileage)
	defer span.End()

	unit := req.Unit
	if unit == "" {
		unit = s.opts.DefaultUnit
	}
	span.SetAttributes(
		attribute.String(telemetry.AttrUnit, string(unit)),
		attribute.Int(telemetry.AttrPoints, len(req.Line.Coordinates)),
	)

	start := time.Now()
	res, err := s.compute(ctx, req, unit)
	if err != nil {
		metrics.ObserveComputation(string(unit), outcome(err), time.Since(start), len(req.Regions))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	metrics.ObserveComputation(string(unit), "ok", time.Since(start), len(res.Regions))
	span.SetAttributes(attribute.Int(telemetry.AttrRegions, len(res.Regions)))

	if !req.IncludeSegments && !s.opts.KeepSegments {
		for i := range res.Regions {
			res.Regions[i].Segments = nil
			res.Regions[i].Crossings = nil
		}
	}
	return res, nil
}

func (s *MileageService) compute(ctx context.Context, req ComputeRequest, unit domain.Unit) (*domain.MileageResult, error) {
	if err := req.Line.Validate(); err != nil {
		return nil, err
	}

	regions, unresolved, err := s.resolve(ctx, req.Regions)
	if err != nil {
		return nil, err
	}

	var res *domain.MileageResult
	if len(regions) > 0 {
		res, err = s.seg.Compute(ctx, req.Line, regions, unit)
		if err != nil {
			var rerr *domain.RegionError
			if errors.As(err, &rerr) {
				metrics.PrimitiveFailures.WithLabelValues(string(rerr.Stage)).Inc()
			}
			return nil, err
		}
	} else {
		total, err := s.seg.Measure(req.Line, unit)
		if err != nil {
			return nil, err
		}
		res = &domain.MileageResult{Unit: unit, LineLength: total}
	}

	for _, name := range unresolved {
		res.Regions = append(res.Regions, domain.RegionMileage{
			Region:  name,
			Status:  domain.RegionStatusUnresolved,
			Warning: domain.UnresolvableRegionError(name).Error(),
		})
	}
	res.Sort()
	return res, nil
}

// resolve looks up region names. Names missing from the dataset are returned
// separately under the skip policy.
func (s *MileageService) resolve(ctx context.Context, names []string) ([]domain.Region, []string, error) {
	_, span := telemetry.Tracer().Start(ctx, telemetry.SpanResolveRegions)
	defer span.End()

	if len(names) == 0 {
		all, err := s.regions.List(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("list regions: %w", err)
		}
		if len(all) == 0 {
			return nil, nil, fmt.Errorf("%w: region dataset is empty", domain.ErrInvalidInput)
		}
		return all, nil, nil
	}

	seen := make(map[string]struct{}, len(names))
	var (
		regions    []domain.Region
		unresolved []string
	)
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate region %q", domain.ErrInvalidInput, name)
		}
		seen[name] = struct{}{}

		r, err := s.regions.Get(ctx, name)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			if s.opts.Policy == domain.MissingRegionFail {
				return nil, nil, domain.UnresolvableRegionError(name)
			}
			slog.WarnContext(ctx, "region not in dataset, skipping", "region", name)
			metrics.UnresolvedRegions.Inc()
			unresolved = append(unresolved, name)
		case err != nil:
			return nil, nil, fmt.Errorf("get region %q: %w", name, err)
		default:
			regions = append(regions, *r)
		}
	}
	span.SetAttributes(attribute.Int(telemetry.AttrUnresolved, len(unresolved)))
	return regions, unresolved, nil
}

// ComputeForRoute computes the mileage of a route's shape, reading through
// the cache. Fresh results are saved and announced on the event bus.
func (s *MileageService) ComputeForRoute(ctx context.Context, routeID string, regions []string, unit domain.Unit) (*domain.RouteMileage, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanComputeRoute)
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrRouteID, routeID))

	if unit == "" {
		unit = s.opts.DefaultUnit
	}

	// Try cache
	cacheKey := RouteCacheKey(routeID, unit, regions)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var m domain.RouteMileage
			if err := json.Unmarshal(data, &m); err == nil {
				metrics.CacheHits.WithLabelValues("route_mileage").Inc()
				span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
				return &m, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("route_mileage").Inc()
	}

	m, err := s.computeRoute(ctx, routeID, regions, unit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(m); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.opts.CacheTTLSeconds)
		}
	}
	return m, nil
}

// Refresh drops any cached result for the route and recomputes it.
func (s *MileageService) Refresh(ctx context.Context, routeID string, regions []string, unit domain.Unit) (*domain.RouteMileage, error) {
	if unit == "" {
		unit = s.opts.DefaultUnit
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, RouteCacheKey(routeID, unit, regions)); err != nil {
			slog.WarnContext(ctx, "cache delete failed", "route_id", routeID, "error", err)
		}
	}
	return s.ComputeForRoute(ctx, routeID, regions, unit)
}

// RequestRefresh queues a recomputation for the worker. Without a publisher
// the route is refreshed synchronously and the result returned.
func (s *MileageService) RequestRefresh(ctx context.Context, req *domain.MileageRequest) (*domain.RouteMileage, error) {
	if req.RouteID == "" {
		return nil, fmt.Errorf("%w: route id is required", domain.ErrInvalidInput)
	}
	if req.Unit == "" {
		req.Unit = s.opts.DefaultUnit
	}
	if s.publisher == nil {
		return s.Refresh(ctx, req.RouteID, req.Regions, req.Unit)
	}
	if err := s.publisher.PublishMileageRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("publish mileage request: %w", err)
	}
	return nil, nil
}

// HandleRequest processes a queued mileage request.
func (s *MileageService) HandleRequest(ctx context.Context, req *domain.MileageRequest) error {
	m, err := s.Refresh(ctx, req.RouteID, req.Regions, req.Unit)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "route mileage refreshed",
		"route_id", req.RouteID,
		"unit", m.Unit,
		"regions", len(m.Result.Regions),
	)
	return nil
}

// LatestForRoute returns the last saved computation for a route.
func (s *MileageService) LatestForRoute(ctx context.Context, routeID string) (*domain.RouteMileage, error) {
	return s.results.GetByRoute(ctx, routeID)
}

func (s *MileageService) computeRoute(ctx context.Context, routeID string, regions []string, unit domain.Unit) (*domain.RouteMileage, error) {
	route, err := s.routes.GetByID(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("get route %s: %w", routeID, err)
	}
	if route.Shape == nil {
		return nil, fmt.Errorf("%w: route %s has no shape", domain.ErrInvalidInput, routeID)
	}

	res, err := s.Compute(ctx, ComputeRequest{Line: *route.Shape, Regions: regions, Unit: unit})
	if err != nil {
		return nil, err
	}

	m := &domain.RouteMileage{
		RouteID:    route.ID,
		Unit:       unit,
		Result:     res,
		ComputedAt: s.now().UTC(),
	}
	if err := s.results.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("save route mileage: %w", err)
	}

	// Broadcast to subscribers
	if s.publisher != nil {
		_ = s.publisher.PublishMileageComputed(ctx, m)
	}
	return m, nil
}

// RouteCacheKey builds the cache key of a route computation. The region list
// is order-insensitive.
func RouteCacheKey(routeID string, unit domain.Unit, regions []string) string {
	names := "all"
	if len(regions) > 0 {
		sorted := append([]string(nil), regions...)
		sort.Strings(sorted)
		sum := sha256.Sum256([]byte(strings.Join(sorted, "\x00")))
		names = hex.EncodeToString(sum[:8])
	}
	return fmt.Sprintf("mileage:route:%s:%s:%s", routeID, unit, names)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrUnresolvableRegion):
		return "unresolvable_region"
	case errors.Is(err, domain.ErrPrimitiveFailure):
		return "primitive_failure"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
