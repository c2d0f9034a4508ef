package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mileage",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mileage",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mileage",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Mileage metrics
	Computations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mileage",
		Subsystem: "segmenter",
		Name:      "computations_total",
		Help:      "Total mileage computations by unit and outcome",
	}, []string{"unit", "outcome"})

	ComputationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mileage",
		Subsystem: "segmenter",
		Name:      "computation_duration_seconds",
		Help:      "Duration of a mileage computation over all requested regions",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"unit"})

	RegionsEvaluated = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mileage",
		Subsystem: "segmenter",
		Name:      "regions_per_computation",
		Help:      "Number of regions evaluated per computation",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
	})

	UnresolvedRegions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mileage",
		Subsystem: "segmenter",
		Name:      "unresolved_regions_total",
		Help:      "Total requested regions missing from the region dataset",
	})

	PrimitiveFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mileage",
		Subsystem: "segmenter",
		Name:      "primitive_failures_total",
		Help:      "Total geometry primitive failures by stage",
	}, []string{"stage"})

	RoutesComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mileage",
		Subsystem: "workflow",
		Name:      "routes_computed_total",
		Help:      "Total routes processed by batch workflows",
	}, []string{"agency", "outcome"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mileage",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mileage",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mileage",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mileage",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mileage",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mileage",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool gauges from a pgxpool.Stat.
func UpdateDBPoolMetrics(stat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}) {
	DBPoolConnsAcquired.Set(float64(stat.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(stat.IdleConns()))
	DBPoolConnsOpen.Set(float64(stat.TotalConns()))
}

// ObserveComputation records one mileage computation.
func ObserveComputation(unit, outcome string, d time.Duration, regions int) {
	Computations.WithLabelValues(unit, outcome).Inc()
	ComputationDuration.WithLabelValues(unit).Observe(d.Seconds())
	if regions > 0 {
		RegionsEvaluated.Observe(float64(regions))
	}
}
