package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-sync/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health *handlers.HealthHandler
	Auth   *handlers.AuthHandler
	Items  *handlers.ItemsHandler
	Stream *handlers.StreamHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.Auth.Me)

	items := app.Group("/items")
	items.Get("", cfg.Items.List)
	items.Post("", cfg.Items.Create)
	items.Patch("/:id", cfg.Items.Update)
	items.Delete("/:id", cfg.Items.Delete)

	app.Get("/ws", cfg.Stream.Upgrade, cfg.Stream.Serve())
}
