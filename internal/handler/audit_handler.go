package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/middleware"
)

// AuditReader lists stored audit records.
type AuditReader interface {
	ListAuditLogs(ctx context.Context, limit int, action string) ([]domain.AuditLog, error)
}

// AuditHandler handles audit log endpoints.
type AuditHandler struct {
	store AuditReader
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(store AuditReader) *AuditHandler {
	return &AuditHandler{store: store}
}

// Register sets up audit routes.
func (h *AuditHandler) Register(router fiber.Router) {
	router.Get("/audit", h.ListLogs)
}

// ListLogs returns audit logs with optional filtering.
func (h *AuditHandler) ListLogs(c fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	action := c.Query("action", "")

	logs, err := h.store.ListAuditLogs(c.Context(), limit, action)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"logs":  logs,
		"count": len(logs),
	})
}

// recordAudit writes a domain event asynchronously. A nil writer is a no-op.
func recordAudit(c fiber.Ctx, writer middleware.AuditWriter, action, resource, resourceID string, details fiber.Map) {
	if writer == nil {
		return
	}
	userID := "anonymous"
	if uc := middleware.GetUserContext(c); uc != nil {
		userID = uc.UserID
	}
	details["trace_id"] = middleware.TraceID(c)
	detailsJSON, _ := json.Marshal(details)

	entry := domain.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    string(detailsJSON),
		IP:         c.IP(),
		UserAgent:  c.Get("User-Agent"),
		CreatedAt:  time.Now().UTC(),
	}
	go func() {
		if err := writer.WriteAudit(entry); err != nil {
			slog.Error("failed to write audit log", "action", action, "error", err)
		}
	}()
}
