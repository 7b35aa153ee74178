package port

import (
	"context"

	"github.com/arturoeanton/go-property-search/internal/domain"
)

// ListingSource loads the full listing collection from flat files or a remote API.
// Implementations substitute safe defaults for missing or malformed fields.
type ListingSource interface {
	// Name identifies the source in logs and snapshot metadata.
	Name() string

	// LoadListings returns every listing the source currently offers.
	LoadListings(ctx context.Context) ([]domain.Listing, error)
}

// Labeler tags listings with an optional cluster label. Best effort: it must not fail the load.
type Labeler interface {
	Label(listings []domain.Listing)
}
