package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Role and tenant decisions live in the
// services behind the authorization guard; the middleware here only
// authenticates.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Get("/me", cfg.Tickets.ListMine)
	tickets.Get("/filter", cfg.Tickets.Filter)
	tickets.Get("/user/:userId", cfg.Tickets.ListByUser)
	tickets.Get("/", cfg.Tickets.ListAll)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Put("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Put("/:id/assign", cfg.Tickets.Assign)
	tickets.Delete("/:id", cfg.Tickets.Delete)

	users := app.Group("/users", cfg.AuthMiddleware.Handle)
	users.Get("/", cfg.Users.List)
	users.Get("/role/:role", cfg.Users.ListByRole)
	users.Get("/:id", cfg.Users.Get)
	users.Put("/:id", cfg.Users.Update)
	users.Put("/:id/role", cfg.Users.ChangeRole)
	users.Put("/:id/deactivate", cfg.Users.Deactivate)
}
