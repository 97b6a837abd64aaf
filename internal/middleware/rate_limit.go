package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/campushq/attendance-api/internal/utils"
)

// RateLimit throttles an endpoint per caller. Biometric readers are
// keyed by their device claim so one misbehaving reader cannot starve
// the rest of the fleet; human callers are keyed by token subject, with
// the source IP as the last resort.
func RateLimit(scope string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 60
	}
	if window <= 0 {
		window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if deviceID, ok := c.Locals("device_id").(string); ok && deviceID != "" {
				return scope + ":device:" + deviceID
			}
			subject := fmt.Sprintf("%v", c.Locals("user_id"))
			if subject == "" || subject == "0" || subject == "<nil>" {
				subject = c.IP()
			}
			return scope + ":" + subject
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}
