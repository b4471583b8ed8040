package observability

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// MetricsHandler serves the grader collectors from gatherer, negotiating OpenMetrics when the
// scraper asks for it. A failing collector is logged and the remaining families are still served.
func MetricsHandler(gatherer prometheus.Gatherer, logger zerolog.Logger) fiber.Handler {
	RegisterMetrics()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	handler := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog:          scrapeLogger{logger: logger.With().Str("component", "metrics").Logger()},
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	})
	return adaptor.HTTPHandler(handler)
}

type scrapeLogger struct {
	logger zerolog.Logger
}

func (l scrapeLogger) Println(v ...interface{}) {
	l.logger.Warn().Msg(strings.TrimSpace(fmt.Sprintln(v...)))
}
