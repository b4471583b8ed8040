package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CorrelationHeader carries the request identifier on responses and published analysis events.
const CorrelationHeader = "X-Correlation-ID"

// maxCorrelationIDLength bounds caller supplied identifiers before they reach logs and NATS payloads.
const maxCorrelationIDLength = 128

type correlationKey struct{}

const correlationLocal = "correlation_id"

// CorrelationID tags each request with an identifier taken from X-Correlation-ID or X-Request-ID,
// generating one when neither is usable. The identifier is stored on the user context so services
// can stamp it onto the events they publish.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := normalizeCorrelationID(c.Get(CorrelationHeader))
		if id == "" {
			id = normalizeCorrelationID(c.Get("X-Request-ID"))
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(correlationLocal, id)
		c.Set(CorrelationHeader, id)
		c.SetUserContext(ContextWithCorrelation(c.UserContext(), id))

		return c.Next()
	}
}

// CorrelationIDFromContext returns the identifier stored by ContextWithCorrelation, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// GetCorrelationID returns the identifier bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(correlationLocal).(string); ok {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}

// ContextWithCorrelation attaches id to ctx. Blank or oversized identifiers leave ctx unchanged.
func ContextWithCorrelation(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	id = normalizeCorrelationID(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

func normalizeCorrelationID(raw string) string {
	id := strings.TrimSpace(raw)
	if len(id) > maxCorrelationIDLength {
		return ""
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return ""
		}
	}
	return id
}
