package handler

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-property-search/internal/service"
)

// HealthHandler reports liveness and the loaded snapshot.
type HealthHandler struct {
	appName     string
	recommender *service.RecommendService
	narrator    string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(appName string, recommender *service.RecommendService, narrator string) *HealthHandler {
	return &HealthHandler{appName: appName, recommender: recommender, narrator: narrator}
}

// Register sets up the health route.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
}

// Health returns service status.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	stats := h.recommender.Stats()
	return c.JSON(fiber.Map{
		"status":   "ok",
		"app":      h.appName,
		"listings": stats.Listings,
		"source":   stats.Source,
		"narrator": h.narrator,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
