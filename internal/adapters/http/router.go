package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/osmmap/internal/pkg/metrics"
)

// SetupRoutes registers the viewer page, push channels, REST, GraphQL and
// operational routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware(deps.logger()))
	app.Use(AccessLogMiddleware())

	// gzip would buffer the event stream
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next:  func(c *fiber.Ctx) bool { return c.Path() == "/api/sse" },
	}))

	// Security headers
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return c.Next()
	})

	app.Use(CachingMiddleware())

	app.Get("/", IndexHandler())

	// Health & readiness
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// Viewer API. Push channels are long-lived and skip the rate limit.
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        600,
		Expiration: 1 * time.Minute,
		Next:       func(c *fiber.Ctx) bool { return c.Path() == "/api/sse" },
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))
	api.Get("/sse", SSEHandler(deps))
	api.Get("/state", ETagMiddleware(), StateHandler(deps))
	api.Get("/view", ETagMiddleware(), ViewHandler(deps))
	api.Post("/viewChanged", ViewChangedHandler(deps))

	app.Post("/graphql", GraphQLHandler(deps))

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
