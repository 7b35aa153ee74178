package port

import (
	"context"

	"github.com/arturoeanton/go-property-search/internal/domain"
)

// LeadStore persists captured leads.
type LeadStore interface {
	SaveLead(ctx context.Context, lead *domain.Lead) error
	ListLeads(ctx context.Context, limit int) ([]domain.Lead, error)
}

// ShortlistStore persists shareable shortlists keyed by share id.
type ShortlistStore interface {
	SaveShortlist(ctx context.Context, s *domain.Shortlist) error
	// GetShortlist returns ErrShortlistNotFound when the id is unknown or expired.
	GetShortlist(ctx context.Context, shareID string) (*domain.Shortlist, error)
}

// LeadNotifier announces newly captured leads to downstream consumers.
type LeadNotifier interface {
	NotifyLead(ctx context.Context, lead *domain.Lead) error
}
