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
		Namespace: "zonemap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zonemap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zonemap",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Resolver metrics
	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zonemap",
		Subsystem: "resolver",
		Name:      "resolutions_total",
		Help:      "Location resolutions by match kind",
	}, []string{"match_kind"})

	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "zonemap",
		Subsystem: "resolver",
		Name:      "resolve_duration_seconds",
		Help:      "Time spent resolving a query against the gazetteer",
		Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
	})

	GazetteerEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "zonemap",
		Subsystem: "gazetteer",
		Name:      "entries",
		Help:      "Entries loaded into the in-memory gazetteer",
	}, []string{"kind"})

	GazetteerImports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zonemap",
		Subsystem: "gazetteer",
		Name:      "imports_total",
		Help:      "Gazetteer import workflow results",
	}, []string{"status"})

	// Viewport metrics
	CameraCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zonemap",
		Subsystem: "viewport",
		Name:      "set_target_total",
		Help:      "SetTarget calls by outcome",
	}, []string{"outcome"})

	ActiveViewports = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "zonemap",
		Subsystem: "viewport",
		Name:      "active",
		Help:      "Viewports currently open",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "zonemap",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zonemap",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zonemap",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "zonemap",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "zonemap",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "zonemap",
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
		path := c.Route().Path // route pattern, keeps viewport ids out of labels
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

// RegisterFuzzyScans exposes the resolver's scan counter. Call it once per
// process; a second registration panics.
func RegisterFuzzyScans(scans func() uint64) {
	promauto.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "zonemap",
		Subsystem: "resolver",
		Name:      "fuzzy_scans_total",
		Help:      "Full gazetteer scans performed by the fuzzy pass",
	}, func() float64 { return float64(scans()) })
}

// PoolStat is the subset of pgxpool.Stat reported as gauges.
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}

// UpdateDBPoolMetrics copies pool statistics into the db gauges.
func UpdateDBPoolMetrics(s PoolStat) {
	DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(s.IdleConns()))
	DBPoolConnsOpen.Set(float64(s.TotalConns()))
}
