package telemetry

// Span and attribute names used for instrumentation.
const (
	// Spans
	SpanComputeMileage = "mileage.compute"
	SpanComputeRoute   = "mileage.compute_route"
	SpanResolveRegions = "mileage.resolve_regions"

	// Attributes
	AttrUnit       = "mileage.unit"
	AttrRegions    = "mileage.regions"
	AttrUnresolved = "mileage.unresolved"
	AttrPoints     = "mileage.line_points"
	AttrRouteID    = "mileage.route_id"
	AttrCacheHit   = "mileage.cache_hit"
)
