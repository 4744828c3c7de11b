package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/guard"
	"github.com/spec-kit/support-desk/internal/permission"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health       *handlers.HealthHandler
	Auth         *handlers.AuthHandler
	Tickets      *handlers.TicketsHandler
	StaffTickets *handlers.StaffTicketsHandler
	Roles        *handlers.RolesHandler
	Guard        *guard.Guard
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Post("/auth/login", cfg.Auth.Login)

	authed := app.Group("", cfg.Guard.Authenticate)
	authed.Post("/auth/logout", cfg.Auth.Logout)
	authed.Get("/auth/me", cfg.Auth.Me)

	customer := authed.Group("/tickets", cfg.Guard.RequireCustomer())
	customer.Post("", cfg.Tickets.Create)
	customer.Get("", cfg.Tickets.List)
	customer.Get("/:id", cfg.Tickets.Get)
	customer.Get("/:id/comments", cfg.Tickets.ListComments)
	customer.Post("/:id/comments", cfg.Tickets.AddComment)

	staff := authed.Group("/staff", cfg.Guard.RequireStaff())
	staff.Get("/tickets", cfg.Guard.RequirePermission(permission.TicketsView), cfg.StaffTickets.List)
	staff.Delete("/tickets", cfg.Guard.RequirePermission(permission.SettingsClearData), cfg.StaffTickets.ClearAll)
	staff.Get("/tickets/:id", cfg.Guard.RequirePermission(permission.TicketsView), cfg.StaffTickets.Get)
	staff.Patch("/tickets/:id",
		cfg.Guard.RequireAnyPermission(permission.TicketsEdit, permission.TicketsChangeStatus, permission.TicketsAssign),
		cfg.StaffTickets.Update)
	staff.Post("/tickets/:id/comments", cfg.Guard.RequirePermission(permission.TicketsEdit), cfg.StaffTickets.AddComment)

	staff.Get("/roles", cfg.Guard.RequirePermission(permission.RolesView), cfg.Roles.List)
	staff.Post("/roles", cfg.Guard.RequirePermission(permission.RolesCreate), cfg.Roles.Create)
	staff.Get("/roles/:id", cfg.Guard.RequirePermission(permission.RolesView), cfg.Roles.Get)
	staff.Put("/roles/:id", cfg.Guard.RequirePermission(permission.RolesEdit), cfg.Roles.Update)
	staff.Delete("/roles/:id", cfg.Guard.RequirePermission(permission.RolesDelete), cfg.Roles.Delete)
	staff.Get("/permissions", cfg.Guard.RequirePermission(permission.RolesView), cfg.Roles.Catalog)
}
