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

const (
	chatFailedMessage    = "An error occurred while processing your request. Please try again."
	defaultFeaturedLimit = 50
)

// ChatHandler serves conversational search and listing lookups.
type ChatHandler struct {
	search      *service.SearchService
	recommender *service.RecommendService
	audit       middleware.AuditWriter
}

// NewChatHandler creates a new chat handler. audit may be nil.
func NewChatHandler(search *service.SearchService, recommender *service.RecommendService, audit middleware.AuditWriter) *ChatHandler {
	return &ChatHandler{search: search, recommender: recommender, audit: audit}
}

// Register sets up search routes.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Post("/chat", h.Chat)
	router.Get("/featured", h.Featured)
	router.Get("/properties/:id", h.GetProperty)
}

// Chat runs one search turn.
func (h *ChatHandler) Chat(c fiber.Ctx) error {
	var body service.SearchRequest
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	result, err := h.search.Search(c.Context(), body)
	if err != nil {
		if errors.Is(err, port.ErrInvalidQuery) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
		}
		slog.Error("chat failed", "error", err, "trace_id", middleware.TraceID(c))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": chatFailedMessage})
	}

	recordAudit(c, h.audit, domain.AuditActionSearch, "chat", body.SessionID, fiber.Map{
		"total":    result.Pagination.Total,
		"returned": result.Pagination.CurrentCount,
		"narrated": result.Narrated,
	})
	return c.JSON(result)
}

// Featured returns featured listings in repository order.
func (h *ChatHandler) Featured(c fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultFeaturedLimit)))
	if err != nil || limit < 1 {
		limit = defaultFeaturedLimit
	}
	return c.JSON(h.recommender.Featured(limit))
}

// GetProperty returns one listing by id.
func (h *ChatHandler) GetProperty(c fiber.Ctx) error {
	l, err := h.recommender.Listing(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Property not found"})
	}
	return c.JSON(l)
}
