package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/arturoeanton/go-property-search/internal/port"
)

// TraceHeader carries the request trace id in and out.
const TraceHeader = "X-Request-ID"

// TraceMiddleware reuses an incoming X-Request-ID or mints one, echoes it
// back and stores it in the request context for downstream adapters.
func TraceMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Get(TraceHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Locals("trace_id", id)
		c.Set(TraceHeader, id)
		c.SetContext(port.WithTraceID(c.Context(), id))
		return c.Next()
	}
}

// TraceID returns the id assigned by TraceMiddleware, or "".
func TraceID(c fiber.Ctx) string {
	id, _ := c.Locals("trace_id").(string)
	return id
}
