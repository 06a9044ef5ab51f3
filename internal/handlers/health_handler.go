package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/raceday-mx/raceday-backend/internal/cache"
	"github.com/raceday-mx/raceday-backend/internal/database"
)

type HealthHandler struct {
	projections *cache.ProjectionCache
}

func NewHealthHandler(projections *cache.ProjectionCache) *HealthHandler {
	return &HealthHandler{projections: projections}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := database.Ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	cacheStatus := "ok"
	if err := h.projections.Ping(c.Context()); err != nil {
		cacheStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"db":        dbStatus,
		"cache":     cacheStatus,
	})
}
