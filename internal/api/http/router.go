package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/cityfix-service/internal/api/http/handlers"
	"github.com/spec-kit/cityfix-service/internal/auth"
	"github.com/spec-kit/cityfix-service/internal/domain"
	"github.com/spec-kit/cityfix-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Issues         *handlers.IssuesHandler
	Payments       *handlers.PaymentsHandler
	Stats          *handlers.StatsHandler
	Media          *handlers.MediaHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Post("/auth/token", cfg.Auth.IssueToken)
	app.Post("/users", cfg.Users.Register)
	// Provider callback; the session id is the idempotency key, so replays
	// are harmless.
	app.Post("/payments/settle", cfg.Payments.Settle)

	authed := app.Group("", cfg.AuthMiddleware.Handle)

	issues := authed.Group("/issues")
	issues.Get("/", cfg.Issues.ListIssues)
	issues.Get("/:id", cfg.Issues.GetIssue)
	issues.Post("/", auth.RequireActive(), cfg.Issues.CreateIssue)
	issues.Patch("/:id", auth.RequireActive(), cfg.Issues.UpdateIssue)
	issues.Post("/:id/upvote", auth.RequireActive(), cfg.Issues.Upvote)
	issues.Post("/:id/assign", auth.RequireRole(domain.UserRoleAdmin), cfg.Issues.Assign)
	issues.Post("/:id/status",
		auth.RequireRole(domain.UserRoleStaff, domain.UserRoleAdmin), cfg.Issues.ChangeStatus)
	issues.Post("/:id/reject",
		auth.RequireRole(domain.UserRoleStaff, domain.UserRoleAdmin), cfg.Issues.Reject)
	issues.Delete("/:id",
		auth.RequireRole(domain.UserRoleStaff, domain.UserRoleAdmin), cfg.Issues.Reject)
	issues.Post("/:id/boost", auth.RequireRole(domain.UserRoleAdmin), cfg.Issues.Boost)

	users := authed.Group("/users")
	users.Get("/",
		auth.RequireRole(domain.UserRoleStaff, domain.UserRoleAdmin), cfg.Users.ListUsers)
	users.Get("/:email", cfg.Users.GetUser)
	users.Patch("/:email/blocked", auth.RequireRole(domain.UserRoleAdmin), cfg.Users.SetBlocked)
	users.Patch("/:email", auth.RequireRole(domain.UserRoleAdmin), cfg.Users.PatchUser)
	users.Delete("/:email", auth.RequireRole(domain.UserRoleAdmin), cfg.Users.RemoveStaff)

	authed.Get("/payments", auth.RequireRole(domain.UserRoleAdmin), cfg.Payments.ListPayments)
	authed.Get("/stats/dashboard", auth.RequireRole(domain.UserRoleAdmin), cfg.Stats.Dashboard)

	media := authed.Group("/media", auth.RequireActive())
	media.Post("/upload-url", cfg.Media.UploadURL)
	media.Get("/download-url", cfg.Media.DownloadURL)
}
