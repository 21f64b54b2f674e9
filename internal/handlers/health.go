package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pharmacare/whatsapp-bot/internal/services"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	catalog *services.CatalogService
	Version string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(catalog *services.CatalogService, version string) *HealthHandler {
	return &HealthHandler{
		catalog: catalog,
		Version: version,
	}
}

// Root returns the service card.
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "PharmaCare WhatsApp Bot",
		"version": h.Version,
		"status":  "healthy",
		"endpoints": fiber.Map{
			"health":  "/health",
			"webhook": "/webhook",
		},
	})
}

// Check probes the commerce backend through the catalog and reports
// degraded with 503 when it is unreachable.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	categories, err := h.catalog.Categories(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"status":               "ok",
		"categories_available": len(categories),
	})
}
