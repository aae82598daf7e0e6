package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RequestIDKey is the fiber local and log field holding the request id.
const RequestIDKey = "request_id"

// RequestLogger logs every request once the rest of the chain has run and feeds
// the request duration histogram. The route pattern is used as the metric label
// so that entity ids do not explode label cardinality.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		status := c.Response().StatusCode()
		route := c.Route().Path

		logger.Info("http request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.Any(RequestIDKey, c.Locals(RequestIDKey)),
		)
		metrics.RecordRequest(route, c.Method(), status, latency)
		return err
	}
}
