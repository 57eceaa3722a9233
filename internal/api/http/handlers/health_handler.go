package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cityfix-service/internal/persistence"
)

// HealthHandler reports service liveness and store readiness.
type HealthHandler struct {
	postgres *persistence.Postgres
}

// NewHealthHandler constructs handler.
func NewHealthHandler(postgres *persistence.Postgres) *HealthHandler {
	return &HealthHandler{postgres: postgres}
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "up"})
}

// Ready GET /health/ready.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if h.postgres != nil {
		if err := h.postgres.PoolHandle().Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"store":  "unreachable",
			})
		}
	}
	return c.JSON(fiber.Map{"status": "ready"})
}
