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
		Namespace: "aoi",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "aoi",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Interaction machine metrics
	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aoi",
		Subsystem: "interaction",
		Name:      "events_total",
		Help:      "Events processed by the interaction machine",
	}, []string{"kind"})

	EventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aoi",
		Subsystem: "interaction",
		Name:      "events_rejected_total",
		Help:      "Events that failed validation",
	}, []string{"kind"})

	SnapshotVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "aoi",
		Subsystem: "interaction",
		Name:      "snapshot_version",
		Help:      "Version of the last published snapshot",
	})

	// Query lifecycle metrics
	QueriesStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aoi",
		Subsystem: "query",
		Name:      "started_total",
		Help:      "Remote queries started",
	}, []string{"endpoint"})

	QueriesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aoi",
		Subsystem: "query",
		Name:      "resolved_total",
		Help:      "Remote queries applied to state, by outcome",
	}, []string{"endpoint", "outcome"})

	StaleResponses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aoi",
		Subsystem: "query",
		Name:      "stale_responses_total",
		Help:      "Responses discarded because their token was superseded",
	})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "aoi",
		Subsystem: "query",
		Name:      "duration_seconds",
		Help:      "Duration of remote queries",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "aoi",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	DroppedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aoi",
		Subsystem: "ws",
		Name:      "dropped_frames_total",
		Help:      "Frames dropped because a client send buffer was full",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aoi",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aoi",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})
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

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}
