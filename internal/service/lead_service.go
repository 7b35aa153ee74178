package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/port"
)

// Confirmation messages returned to the buyer.
const (
	LeadSavedMessage         = "Your request has been submitted successfully! We'll contact you within 24 hours."
	LeadSavedFallbackMessage = "Your request has been submitted successfully! We'll contact you soon."
)

// LeadRequest is a contact request as submitted by a buyer.
type LeadRequest struct {
	Name       string `json:"name"`
	Contact    string `json:"contact"`
	Interest   string `json:"interest"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Message    string `json:"message,omitempty"`
	PropertyID string `json:"property_id,omitempty"`
}

// LeadReceipt confirms a captured lead.
type LeadReceipt struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	LeadID  string `json:"lead_id"`
	Source  string `json:"source"`
}

type fieldRule struct {
	name     string
	value    *string
	min, max int
}

// LeadService captures leads into the primary store, falling back to a local store.
type LeadService struct {
	primary  port.LeadStore
	fallback port.LeadStore
	notifier port.LeadNotifier
}

// NewLeadService creates a lead service. primary and notifier may be nil.
func NewLeadService(primary, fallback port.LeadStore, notifier port.LeadNotifier) *LeadService {
	return &LeadService{primary: primary, fallback: fallback, notifier: notifier}
}

// ValidateLead trims every field and enforces length limits.
func ValidateLead(req *LeadRequest) error {
	rules := []fieldRule{
		{"name", &req.Name, 2, 100},
		{"contact", &req.Contact, 5, 100},
		{"interest", &req.Interest, 1, 500},
		{"email", &req.Email, 0, 100},
		{"phone", &req.Phone, 0, 20},
		{"message", &req.Message, 0, 1000},
		{"property_id", &req.PropertyID, 0, 100},
	}
	for _, r := range rules {
		*r.value = strings.TrimSpace(*r.value)
		n := utf8.RuneCountInString(*r.value)
		if n < r.min || n > r.max {
			if r.min > 0 {
				return fmt.Errorf("%w: %s must be between %d and %d characters", port.ErrInvalidLead, r.name, r.min, r.max)
			}
			return fmt.Errorf("%w: %s must be at most %d characters", port.ErrInvalidLead, r.name, r.max)
		}
	}
	return nil
}

// Capture validates and persists a lead. Only a failure of both stores is an error.
func (s *LeadService) Capture(ctx context.Context, req LeadRequest) (*LeadReceipt, error) {
	if err := ValidateLead(&req); err != nil {
		return nil, err
	}

	lead := &domain.Lead{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Contact:    req.Contact,
		Interest:   req.Interest,
		Email:      req.Email,
		Phone:      req.Phone,
		Message:    req.Message,
		PropertyID: req.PropertyID,
		CreatedAt:  time.Now().UTC(),
	}

	receipt := &LeadReceipt{Success: true, LeadID: lead.ID}
	if err := s.save(ctx, lead); err != nil {
		return nil, err
	}
	receipt.Source = lead.Source
	if lead.Source == domain.LeadSourcePrimary {
		receipt.Message = LeadSavedMessage
	} else {
		receipt.Message = LeadSavedFallbackMessage
	}

	slog.Info("lead captured", "lead_id", lead.ID, "source", lead.Source, "property_id", lead.PropertyID)

	if s.notifier != nil {
		if err := s.notifier.NotifyLead(ctx, lead); err != nil {
			slog.Warn("lead notification failed", "lead_id", lead.ID, "error", err)
		}
	}
	return receipt, nil
}

func (s *LeadService) save(ctx context.Context, lead *domain.Lead) error {
	if s.primary != nil {
		lead.Source = domain.LeadSourcePrimary
		err := s.primary.SaveLead(ctx, lead)
		if err == nil {
			return nil
		}
		slog.Warn("primary lead store failed, using fallback", "error", err)
	}
	if s.fallback == nil {
		return fmt.Errorf("save lead: %w", port.ErrStoreUnavailable)
	}
	lead.Source = domain.LeadSourceFallback
	if err := s.fallback.SaveLead(ctx, lead); err != nil {
		return fmt.Errorf("save lead: %w", errors.Join(port.ErrStoreUnavailable, err))
	}
	return nil
}

// List returns the most recent leads from the primary store, or the fallback if it is unavailable.
func (s *LeadService) List(ctx context.Context, limit int) ([]domain.Lead, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if s.primary != nil {
		leads, err := s.primary.ListLeads(ctx, limit)
		if err == nil {
			return leads, nil
		}
		slog.Warn("primary lead store unavailable for listing", "error", err)
	}
	if s.fallback == nil {
		return nil, port.ErrStoreUnavailable
	}
	return s.fallback.ListLeads(ctx, limit)
}
