package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/middleware"
	"github.com/arturoeanton/go-property-search/internal/service"
)

// RefreshHandler triggers listing reloads and reports their progress.
type RefreshHandler struct {
	refresher   *service.Refresher
	recommender *service.RecommendService
	audit       middleware.AuditWriter
}

// NewRefreshHandler creates a new refresh handler. audit may be nil.
func NewRefreshHandler(refresher *service.Refresher, recommender *service.RecommendService, audit middleware.AuditWriter) *RefreshHandler {
	return &RefreshHandler{refresher: refresher, recommender: recommender, audit: audit}
}

// Register sets up admin refresh routes.
func (h *RefreshHandler) Register(router fiber.Router) {
	router.Get("/stats", h.Stats)
	router.Post("/refresh", h.Trigger)
	router.Get("/refresh/:id", h.GetStatus)
	router.Get("/refresh/:id/stream", h.StreamSSE)
}

// Stats describes the snapshot being served.
func (h *RefreshHandler) Stats(c fiber.Ctx) error {
	return c.JSON(h.recommender.Stats())
}

// Trigger starts a background refresh.
func (h *RefreshHandler) Trigger(c fiber.Ctx) error {
	id := h.refresher.Trigger(c.Context())
	recordAudit(c, h.audit, domain.AuditActionRefresh, "listings", id, fiber.Map{})
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id": id,
		"status": service.JobRunning,
	})
}

// GetStatus returns the current job status.
func (h *RefreshHandler) GetStatus(c fiber.Ctx) error {
	job, err := h.refresher.Job(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
	}
	return c.JSON(job)
}

// StreamSSE streams job updates via Server-Sent Events.
func (h *RefreshHandler) StreamSSE(c fiber.Ctx) error {
	id := c.Params("id")
	tracker := h.refresher.Tracker()

	job, ok := tracker.GetJob(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	if job.Done() {
		data, _ := json.Marshal(job)
		return c.SendString(fmt.Sprintf("event: %s\ndata: %s\n\n", job.Status, data))
	}

	ch := tracker.Subscribe(id)
	// The job may have finished between GetJob and Subscribe.
	if latest, ok := tracker.GetJob(id); ok && latest.Done() {
		tracker.Unsubscribe(id, ch)
		data, _ := json.Marshal(latest)
		return c.SendString(fmt.Sprintf("event: %s\ndata: %s\n\n", latest.Status, data))
	}

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer tracker.Unsubscribe(id, ch)

		data, _ := json.Marshal(job)
		fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
		w.Flush()

		timeout := time.After(5 * time.Minute)
		for {
			select {
			case update, ok := <-ch:
				if !ok {
					return
				}
				data, _ := json.Marshal(update)
				event := "progress"
				if update.Done() {
					event = update.Status
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
				w.Flush()
				if update.Done() {
					return
				}
			case <-timeout:
				slog.Warn("SSE timeout", "job_id", id)
				return
			}
		}
	})
}
