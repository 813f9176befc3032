package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/config"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/handler"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/middleware"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	OpportunityHandler *handler.OpportunityHandler
	AssessmentHandler  *handler.AssessmentHandler
	ActivityHandler    *handler.ActivityHandler
	JWTMiddleware      fiber.Handler
	Notifier           string
}

func passThrough(c *fiber.Ctx) error { return c.Next() }

func guard(role string) fiber.Handler {
	return middleware.WithAuth(passThrough, middleware.AuthOptions{Role: role})
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/health", handler.HealthCheck(cfg, deps.Notifier))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = passThrough
	}

	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	}, jwtMiddleware)

	if deps.OpportunityHandler != nil {
		if cfg.EditRateLimit > 0 {
			api.Use("/opportunities", middleware.RateLimit("opportunity-edit", cfg.EditRateLimit, time.Minute, fiber.MethodPatch))
		}
		deps.OpportunityHandler.Register(
			api.Group("/opportunities"),
			guard(middleware.AuthRoleBuyer),
			guard(middleware.AuthRoleBuyer),
			middleware.WithAuth(passThrough, middleware.AuthOptions{Role: middleware.AuthRoleAny, RequireUser: true}),
		)
	}

	if deps.AssessmentHandler != nil {
		deps.AssessmentHandler.Register(
			api.Group("/evidence"),
			guard(middleware.AuthRoleSeller),
			guard(middleware.AuthRoleAssessor),
		)
	}

	if deps.ActivityHandler != nil {
		admin := api.Group("/admin", middleware.RequireRole(models.RoleAdmin))
		deps.ActivityHandler.Register(admin.Group("/activity"))
	}
}
