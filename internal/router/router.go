package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/essay-grader/internal/config"
	"github.com/noah-isme/essay-grader/internal/handler"
	"github.com/noah-isme/essay-grader/internal/middleware"
	"github.com/noah-isme/essay-grader/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	EvaluationHandler *handler.EvaluationHandler
	PageHandler       *handler.PageHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.EvaluationHandler != nil {
		limiter := middleware.RateLimit("api-evaluations", cfg.RateLimitMax, cfg.RateLimitWindow, nil)
		deps.EvaluationHandler.Register(api, limiter)
	}

	if deps.PageHandler != nil {
		limiter := middleware.RateLimit("page-evaluations", cfg.RateLimitMax, cfg.RateLimitWindow, deps.PageHandler.LimitReached)
		deps.PageHandler.Register(app, limiter)
	}
}
