package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/zonemap/internal/core/domain"
	"github.com/samirrijal/zonemap/internal/pkg/metrics"
)

const requestTimeout = 5 * time.Second

// geocodeSunset is when the legacy /v1/geocode alias goes away.
var geocodeSunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Typing-as-you-search clients fire a lot of requests, so the budget is
	// per IP and generous.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		Next: func(c *fiber.Ctx) bool {
			return websocket.IsWebSocketUpgrade(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())
	app.Use(DeprecationMiddleware([]DeprecatedRoute{
		{Path: "/v1/geocode", SunsetDate: geocodeSunset, Alternative: "/v1/resolve"},
	}))

	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/resolve", withTimeout(ResolveHandler(deps)))
	v1.Get("/geocode", withTimeout(ResolveHandler(deps)))
	v1.Get("/gazetteer/countries", withTimeout(ListPlacesHandler(deps, domain.KindCountry)))
	v1.Get("/gazetteer/cities", withTimeout(ListPlacesHandler(deps, domain.KindCity)))

	v1.Post("/viewports", withTimeout(OpenViewportHandler(deps)))
	vp := v1.Group("/viewports")
	vp.Get("/:id", withTimeout(GetViewportHandler(deps)))
	vp.Delete("/:id", withTimeout(CloseViewportHandler(deps)))
	vp.Post("/:id/search", withTimeout(SearchViewportHandler(deps)))
	vp.Post("/:id/highlight", withTimeout(HighlightViewportHandler(deps)))
	vp.Post("/:id/target", withTimeout(TargetViewportHandler(deps)))
	vp.Post("/:id/animation-complete", withTimeout(AnimationCompleteHandler(deps)))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/viewports/:id", websocket.New(ViewportSocketHandler(deps)))
}

func withTimeout(h fiber.Handler) fiber.Handler {
	return timeout.NewWithContext(h, requestTimeout)
}
