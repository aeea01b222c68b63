package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderCorrelationID is echoed on every response so a caller can tie a
// request to the recommendation hand-off and log lines it produced.
const HeaderCorrelationID = "X-Correlation-ID"

type correlationIDKey struct{}

var correlationKey = correlationIDKey{}

// CorrelationID tags each request with a correlation identifier. Inbound
// values are honoured only when they parse as UUIDs so arbitrary client
// input never lands in the logs.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := inboundCorrelationID(c)
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals("correlation_id", id)
		c.Set(HeaderCorrelationID, id)
		c.SetUserContext(context.WithValue(c.Context(), correlationKey, id))

		return c.Next()
	}
}

func inboundCorrelationID(c *fiber.Ctx) string {
	for _, header := range []string{HeaderCorrelationID, "X-Request-ID"} {
		raw := strings.TrimSpace(c.Get(header))
		if raw == "" {
			continue
		}
		if _, err := uuid.Parse(raw); err == nil {
			return raw
		}
	}
	return ""
}

// GetCorrelationID returns the identifier bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals("correlation_id").(string); ok {
		return id
	}
	return CorrelationIDFromContext(c.Context())
}

// CorrelationIDFromContext extracts the identifier from a plain context,
// for code running outside a Fiber handler.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithCorrelation attaches an identifier to the provided context.
func ContextWithCorrelation(ctx context.Context, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey, correlationID)
}
