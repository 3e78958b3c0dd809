package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nutq-platform/nutq-api/internal/config"
	"github.com/nutq-platform/nutq-api/internal/handler"
	"github.com/nutq-platform/nutq-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler     *handler.AuthHandler
	TemplateHandler *handler.TemplateHandler
	ExamHandler     *handler.ExamHandler
	UserHandler     *handler.UserHandler
	JWTMiddleware   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"))
		deps.AuthHandler.RegisterProtected(api.Group("/auth", jwtMiddleware))
	}

	exams := api.Group("/exams", jwtMiddleware)
	if deps.TemplateHandler != nil {
		deps.TemplateHandler.Register(exams.Group("/templates"))
	}
	if deps.ExamHandler != nil {
		deps.ExamHandler.Register(exams)
	}

	if deps.UserHandler != nil {
		deps.UserHandler.Register(api.Group("/users", jwtMiddleware))
	}
}
