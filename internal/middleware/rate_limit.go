package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/essay-grader/internal/utils"
)

// RateLimit creates a per-client rate limiter middleware instance. Requests
// are keyed on the client IP because session identifiers are chosen by the
// client. When limitReached is nil a JSON 429 envelope is sent.
func RateLimit(identifier string, max int, window time.Duration, limitReached fiber.Handler) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	if limitReached == nil {
		limitReached = func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusTooManyRequests, "too many requests, please retry later")
		}
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return fmt.Sprintf("%s:%s", identifier, c.IP())
		},
		LimitReached: limitReached,
	})
}
