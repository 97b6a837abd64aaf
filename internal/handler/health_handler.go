package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/campushq/attendance-api/internal/config"
	"github.com/campushq/attendance-api/internal/utils"
)

var processStart = time.Now()

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	Service       string    `json:"service"`
	Environment   string    `json:"environment"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}

// HealthCheck reports process liveness. Readiness of postgres and redis
// is left to the orchestrator probes; this endpoint must stay cheap
// enough to poll every few seconds.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:        "ok",
			Timestamp:     time.Now().UTC(),
			Service:       cfg.AppName,
			Environment:   cfg.AppEnv,
			UptimeSeconds: int64(time.Since(processStart).Seconds()),
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
