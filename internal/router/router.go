package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/persona-labs/persona-api/internal/config"
	"github.com/persona-labs/persona-api/internal/handler"
	"github.com/persona-labs/persona-api/internal/middleware"
	"github.com/persona-labs/persona-api/internal/observability"
	"github.com/persona-labs/persona-api/internal/service"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	BaseTestHandler *handler.BaseTestHandler
	MetricHandler   *handler.MetricHandler
	TestHandler     *handler.TestHandler
	StudentHandler  *handler.StudentHandler
	AttemptHandler  *handler.AttemptHandler
	JWTMiddleware   fiber.Handler
}

// Register wires the HTTP routes into the fiber application. Authoring
// endpoints require the admin role; attempt endpoints only require an
// authenticated caller because ownership is enforced in the service.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	adminOnly := middleware.RequireRole(service.RoleAdmin)

	if deps.BaseTestHandler != nil {
		admin := api.Group("/admin/base-tests", jwtMiddleware, adminOnly)
		deps.BaseTestHandler.Register(admin)

		catalog := api.Group("/base-tests", jwtMiddleware)
		deps.BaseTestHandler.RegisterCatalog(catalog)
	}

	if deps.MetricHandler != nil {
		metrics := api.Group("/admin/metrics", jwtMiddleware, adminOnly)
		deps.MetricHandler.Register(metrics)
	}

	if deps.TestHandler != nil {
		admin := api.Group("/admin/tests", jwtMiddleware, adminOnly)
		deps.TestHandler.Register(admin)

		public := api.Group("/tests", jwtMiddleware)
		deps.TestHandler.RegisterPublic(public)
	}

	if deps.StudentHandler != nil {
		students := api.Group("/students", jwtMiddleware)
		deps.StudentHandler.Register(students)
	}

	if deps.AttemptHandler != nil {
		attempts := api.Group("/attempts", jwtMiddleware, middleware.RateLimit("attempts", 60, time.Minute))
		deps.AttemptHandler.Register(attempts)
	}
}
