package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader-api/internal/observability"
)

// unmatchedRoute labels requests that reached no handler so stray paths cannot grow label sets.
const unmatchedRoute = "unmatched"

// Observability records request, latency and error metrics for paths under prefix and logs one line
// per request with its correlation id and upload size.
func Observability(logger zerolog.Logger, prefix string) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		if !strings.HasPrefix(c.Path(), prefix) {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		status, route := responseStatus(c, err)
		method := c.Method()
		statusLabel := strconv.Itoa(status)

		observability.APIRequests().WithLabelValues(method, route, statusLabel).Inc()
		observability.APILatency().WithLabelValues(method, route).Observe(elapsed.Seconds())
		if status >= fiber.StatusBadRequest {
			observability.APIErrors().WithLabelValues(method, route, statusLabel).Inc()
		}

		event := logger.Info()
		switch {
		case status >= fiber.StatusInternalServerError:
			event = logger.Error()
		case status >= fiber.StatusBadRequest:
			event = logger.Warn()
		}
		event.
			Str("correlation_id", GetCorrelationID(c)).
			Str("route", route).
			Str("method", method).
			Int("status", status).
			Int("bytes_in", c.Request().Header.ContentLength()).
			Dur("latency", elapsed).
			Msg("request completed")

		return err
	}
}

// responseStatus resolves the final status before the app error handler runs. A returned
// fiber.Error is reported with its own code; other errors are reported as 500.
func responseStatus(c *fiber.Ctx, err error) (int, string) {
	route := c.Path()
	if c.Route() != nil && c.Route().Path != "" {
		route = c.Route().Path
	}
	if err == nil {
		return c.Response().StatusCode(), route
	}

	var fiberErr *fiber.Error
	if !errors.As(err, &fiberErr) {
		return fiber.StatusInternalServerError, route
	}
	if fiberErr.Code == fiber.StatusNotFound {
		route = unmatchedRoute
	}
	return fiberErr.Code, route
}
