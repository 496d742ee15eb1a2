package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-access-service/internal/api/http/handlers"
	"github.com/spec-kit/staff-access-service/internal/auth"
	"github.com/spec-kit/staff-access-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Owners         *handlers.OwnersHandler
	Staff          *handlers.StaffHandler
	Access         *handlers.AccessHandler
	WS             *handlers.WSHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/owners/register", cfg.Owners.Register)
	authGroup.Post("/owners/login", cfg.Owners.Login)
	authGroup.Post("/staff/login", cfg.Staff.Login)
	authGroup.Post("/password/reset/request", cfg.Owners.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Owners.ConfirmPasswordReset)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnySubject())
	authProtected.Post("/password/change", cfg.Owners.ChangePassword)
	authProtected.Post("/refresh", cfg.Owners.Refresh)

	staffGroup := app.Group("/staff", cfg.AuthMiddleware.Handle, auth.RequireOwner())
	staffGroup.Post("/members", cfg.Staff.CreateStaff)
	staffGroup.Get("/members", cfg.Staff.ListStaff)
	staffGroup.Get("/members/:id", cfg.Staff.GetStaff)
	staffGroup.Put("/members/:id", cfg.Staff.UpdateStaff)
	staffGroup.Put("/members/:id/status", cfg.Staff.SetStaffStatus)
	staffGroup.Put("/members/:id/access", cfg.Access.UpdateAccess)

	accessGroup := app.Group("/access", cfg.AuthMiddleware.Handle)
	accessGroup.Get("/me", auth.RequireStaff(), cfg.Access.Me)
	accessGroup.Get("/capabilities", auth.RequireAnySubject(), cfg.Access.Capabilities)
	accessGroup.Get("/stats", auth.RequireCapability(domain.CapabilityReports), cfg.Access.Stats)

	// Token travels as a query parameter on the websocket handshake; auth
	// happens inside the handler.
	app.Use("/ws", cfg.WS.UpgradeGate)
	app.Get("/ws/sessions", cfg.WS.Subscribe())
}
