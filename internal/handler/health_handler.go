package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/config"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Notifier    string    `json:"notifier"`
}

// HealthCheck returns a handler that reports application health information.
// notifier names the event transport in use so operators can spot a
// deployment that fell back to log-only delivery.
func HealthCheck(cfg config.Config, notifier string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Notifier:    notifier,
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
