package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/aoiexplorer/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	logger := deps.logger()

	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware(logger))
	app.Use(AccessLogMiddleware(logger))

	// Rate limiting: 600 requests per minute per IP; drawing clients poll /v1/state.
	app.Use(limiter.New(limiter.Config{
		Max:        600,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(CachingMiddleware())

	// Health & readiness (no timeout; fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/state", StateHandler(deps))
	v1.Get("/endpoints", EndpointsHandler(deps))
	v1.Get("/map", MapHandler(deps))
	v1.Post("/drawing/start", timeout.NewWithContext(StartDrawingHandler(deps), requestTimeout))
	v1.Post("/drawing/stop", timeout.NewWithContext(StopDrawingHandler(deps), requestTimeout))
	v1.Post("/aoi", timeout.NewWithContext(CapturePolygonHandler(deps), requestTimeout))
	v1.Put("/endpoint", timeout.NewWithContext(SelectEndpointHandler(deps), requestTimeout))
	v1.Post("/query/clear-error", timeout.NewWithContext(ClearErrorHandler(deps), requestTimeout))
	v1.Post("/ping", timeout.NewWithContext(PingHandler(deps), requestTimeout))
	v1.Get("/queries/recent", timeout.NewWithContext(RecentQueriesHandler(deps), requestTimeout))

	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), requestTimeout))

	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))
}
