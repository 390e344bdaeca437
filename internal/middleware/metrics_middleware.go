package middleware

import (
	"time"

	"github.com/arzan03/shopfront/internal/metrics"
	"github.com/gofiber/fiber/v2"
)

// MetricsMiddleware records request count and latency per route template.
// Errors from the chain are rendered here so the recorded status is the one the client sees.
func MetricsMiddleware(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		m.ObserveHTTP(c.Route().Path, c.Method(), c.Response().StatusCode(), time.Since(start))
		return nil
	}
}
