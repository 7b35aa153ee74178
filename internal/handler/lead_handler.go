package handler

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/middleware"
	"github.com/arturoeanton/go-property-search/internal/port"
	"github.com/arturoeanton/go-property-search/internal/service"
)

// LeadHandler captures buyer contact requests.
type LeadHandler struct {
	leads *service.LeadService
	audit middleware.AuditWriter
}

// NewLeadHandler creates a new lead handler. audit may be nil.
func NewLeadHandler(leads *service.LeadService, audit middleware.AuditWriter) *LeadHandler {
	return &LeadHandler{leads: leads, audit: audit}
}

// Register sets up public lead routes.
func (h *LeadHandler) Register(router fiber.Router) {
	router.Post("/lead", h.Capture)
}

// RegisterAdmin sets up lead routes that need an admin token.
func (h *LeadHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/leads", h.List)
}

// Capture saves a lead.
func (h *LeadHandler) Capture(c fiber.Ctx) error {
	var body service.LeadRequest
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	receipt, err := h.leads.Capture(c.Context(), body)
	if err != nil {
		if errors.Is(err, port.ErrInvalidLead) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
		}
		slog.Error("lead capture failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to submit your request. Please try again."})
	}

	recordAudit(c, h.audit, domain.AuditActionLeadCaptured, "lead", receipt.LeadID, fiber.Map{"source": receipt.Source})
	return c.JSON(fiber.Map{
		"status":  "success",
		"message": receipt.Message,
		"lead_id": receipt.LeadID,
	})
}

// List returns recent leads.
func (h *LeadHandler) List(c fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	leads, err := h.leads.List(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"leads": leads,
		"count": len(leads),
	})
}
