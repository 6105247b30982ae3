package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/salesops/internal/services"
)

// HealthHandler serves the database health report
type HealthHandler struct {
	Service *services.HealthService
}

// DB handles GET /health/db
// @Summary Database health
// @Description UP with database and driver details, or 503 DOWN with the error
// @Tags Health
// @Produce json
// @Success 200 {object} services.DBHealth
// @Failure 503 {object} services.DBHealth
// @Router /health/db [get]
func (h *HealthHandler) DB(c *fiber.Ctx) error {
	result := h.Service.CheckDB(c.UserContext())
	status := fiber.StatusOK
	if result.Status != services.StatusUp {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}
