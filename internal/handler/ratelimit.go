package handler

import (
	"github.com/gofiber/fiber/v2"
	logger "github.com/soulteary/logger-kit"

	"github.com/soulteary/totp-seed/internal/config"
	"github.com/soulteary/totp-seed/internal/store"
)

// RateLimit rejects callers that exceed RATE_LIMIT_PER_IP requests per minute.
// Redis errors are logged and the request is let through.
func RateLimit(st *store.Store, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := st.IncrRateIP(c.Context(), c.IP())
		if err != nil {
			log.Warn().Err(err).Msg("rate limit: counter unavailable")
			return c.Next()
		}
		if config.RateLimitPerIP > 0 && n > int64(config.RateLimitPerIP) {
			return respondRateLimited(c)
		}
		return c.Next()
	}
}
