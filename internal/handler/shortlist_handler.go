package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/middleware"
	"github.com/arturoeanton/go-property-search/internal/port"
	"github.com/arturoeanton/go-property-search/internal/service"
)

// ShortlistHandler shares comparison shortlists.
type ShortlistHandler struct {
	shortlists *service.ShortlistService
	audit      middleware.AuditWriter
}

// NewShortlistHandler creates a new shortlist handler. audit may be nil.
func NewShortlistHandler(shortlists *service.ShortlistService, audit middleware.AuditWriter) *ShortlistHandler {
	return &ShortlistHandler{shortlists: shortlists, audit: audit}
}

// Register sets up shortlist routes.
func (h *ShortlistHandler) Register(router fiber.Router) {
	router.Post("/shortlist/share", h.Share)
	router.Get("/shortlist/share/:id", h.Get)
}

// Share stores a shortlist and returns its share link.
func (h *ShortlistHandler) Share(c fiber.Ctx) error {
	var body struct {
		PropertyIDs []string `json:"property_ids"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	result, err := h.shortlists.Share(c.Context(), body.PropertyIDs)
	if err != nil {
		if errors.Is(err, port.ErrInvalidShortlist) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
		}
		slog.Error("shortlist share failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create shareable link"})
	}

	recordAudit(c, h.audit, domain.AuditActionShortlistShared, "shortlist", result.ShareID, fiber.Map{"count": result.PropertyCount})
	return c.JSON(result)
}

// Get returns the listings of a shared shortlist in saved order.
func (h *ShortlistHandler) Get(c fiber.Ctx) error {
	sl, err := h.shortlists.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, port.ErrShortlistNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Shortlist not found or expired"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve shortlist"})
	}
	return c.JSON(sl.Properties)
}
