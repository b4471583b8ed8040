package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader-api/internal/config"
	"github.com/noah-isme/gema-grader-api/internal/handler"
	"github.com/noah-isme/gema-grader-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ExtractHandler  *handler.ExtractHandler
	AnalysisHandler *handler.AnalysisHandler
	SectionHandler  *handler.SectionHandler
	RateLimiter     fiber.Handler
	Logger          *zerolog.Logger
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	logger := zerolog.Nop()
	if deps.Logger != nil {
		logger = *deps.Logger
	}
	app.Get("/metrics", observability.MetricsHandler(prometheus.DefaultGatherer, logger))

	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided rate limiter on model-backed routes, or a no-op if nil
	limited := api
	if deps.RateLimiter != nil {
		limited = api.Group("", deps.RateLimiter)
	}

	if deps.ExtractHandler != nil {
		deps.ExtractHandler.Register(limited)
	}

	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.Register(limited)
	}

	if deps.SectionHandler != nil {
		deps.SectionHandler.Register(limited)
	}
}
