package middleware_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grader-api/internal/middleware"
	"github.com/noah-isme/gema-grader-api/internal/observability"
)

func TestCorrelationIDPropagates(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		require.Equal(t, middleware.GetCorrelationID(c), middleware.CorrelationIDFromContext(c.UserContext()))
		return c.SendString(middleware.GetCorrelationID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "req-123", resp.Header.Get("X-Correlation-ID"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "req-123", string(body))
}

func TestCorrelationIDGenerated(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Len(t, resp.Header.Get("X-Correlation-ID"), 36)
}

func TestCorrelationIDFallsBackToRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "lb-77")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "lb-77", resp.Header.Get("X-Correlation-ID"))
}

func TestCorrelationIDReplacesUnusableHeader(t *testing.T) {
	cases := map[string]string{
		"oversized":   strings.Repeat("a", 129),
		"inner_space": "req 1",
		"only_spaces": "   ",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			app := fiber.New()
			app.Use(middleware.CorrelationID())
			app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Correlation-ID", header)
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Len(t, resp.Header.Get("X-Correlation-ID"), 36)
		})
	}
}

func TestContextWithCorrelation(t *testing.T) {
	ctx := middleware.ContextWithCorrelation(context.Background(), "  job-5 ")
	require.Equal(t, "job-5", middleware.CorrelationIDFromContext(ctx))

	require.Empty(t, middleware.CorrelationIDFromContext(middleware.ContextWithCorrelation(context.Background(), " ")))
	require.Empty(t, middleware.CorrelationIDFromContext(context.Background()))
}

func TestRegisterRecoversPanics(t *testing.T) {
	logger := zerolog.New(io.Discard)
	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	app.Get("/api/boom", func(c *fiber.Ctx) error { panic("boom") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/boom", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
}

func TestRateLimit(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.RateLimit("test", 2, time.Minute))
	app.Post("/api/analyze", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/analyze", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/analyze", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestObservabilityRecordsAPIRoutes(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.Observability(zerolog.New(io.Discard), middleware.APIPrefix))
	app.Get("/api/analyze/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/api/teapot", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })
	app.Get("/internal", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	ok := observability.APIRequests().WithLabelValues(http.MethodGet, "/api/analyze/:id", "200")
	teapot := observability.APIErrors().WithLabelValues(http.MethodGet, "/api/teapot", "418")
	unmatched := observability.APIRequests().WithLabelValues(http.MethodGet, "unmatched", "404")
	okBefore, teapotBefore, unmatchedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(teapot), testutil.ToFloat64(unmatched)

	for _, path := range []string{"/api/analyze/1", "/api/analyze/2", "/api/teapot", "/api/missing", "/internal", "/missing"} {
		_, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
	}

	require.Equal(t, okBefore+2, testutil.ToFloat64(ok))
	require.Equal(t, teapotBefore+1, testutil.ToFloat64(teapot))
	require.Equal(t, unmatchedBefore+1, testutil.ToFloat64(unmatched))
}
