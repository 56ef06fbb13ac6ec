package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Companies      *handlers.CompaniesHandler
	Users          *handlers.UsersHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	tickets := api.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("/stats", cfg.Tickets.Stats)
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Get("/", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Put("/:id", cfg.Tickets.Update)
	tickets.Delete("/:id", cfg.Tickets.Delete)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Post("/:id/forward", cfg.Tickets.Forward)

	manageRoles := auth.RequireRole(domain.RoleManager, domain.RoleAdmin, domain.RoleSuperAdmin)

	companies := api.Group("/companies", cfg.AuthMiddleware.Handle, manageRoles)
	companies.Post("/", cfg.Companies.Create)
	companies.Get("/", cfg.Companies.List)
	companies.Get("/:id", cfg.Companies.Get)
	companies.Put("/:id", cfg.Companies.Update)
	companies.Delete("/:id", cfg.Companies.Delete)
	companies.Get("/:id/email-config", cfg.Companies.GetEmailConfig)
	companies.Put("/:id/email-config", cfg.Companies.UpdateEmailConfig)
	companies.Post("/:id/test-email", cfg.Companies.TestEmail)

	users := api.Group("/users", cfg.AuthMiddleware.Handle)
	users.Post("/", manageRoles, cfg.Users.Create)
	users.Get("/", manageRoles, cfg.Users.List)
	users.Get("/:id", cfg.Users.Get)
	users.Put("/:id", cfg.Users.Update)
	users.Delete("/:id", auth.RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin), cfg.Users.Delete)

	reports := api.Group("/reports", cfg.AuthMiddleware.Handle)
	reports.Get("/dashboard", cfg.Reports.Dashboard)
}
