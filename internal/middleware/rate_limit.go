package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/utils"
)

// RateLimit throttles requests per actor, falling back to the client IP for
// anonymous callers. When methods are given only those methods count.
func RateLimit(identifier string, max int, window time.Duration, methods ...string) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	limited := make(map[string]struct{}, len(methods))
	for _, method := range methods {
		limited[strings.ToUpper(method)] = struct{}{}
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Next: func(c *fiber.Ctx) bool {
			if len(limited) == 0 {
				return false
			}
			_, ok := limited[c.Method()]
			return !ok
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			actor := c.IP()
			if userID, ok := c.Locals(LocalUserID).(uint); ok && userID > 0 {
				actor = fmt.Sprintf("user:%d", userID)
			}
			return fmt.Sprintf("%s:%s", identifier, actor)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusTooManyRequests, "too many requests")
		},
	})
}
