package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/port"
)

// FallbackSource tries its sources in order and returns the first non-empty load.
type FallbackSource struct {
	sources []port.ListingSource
	name    string
}

// NewFallbackSource chains sources, skipping nil entries.
func NewFallbackSource(sources ...port.ListingSource) *FallbackSource {
	f := &FallbackSource{}
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		if s == nil {
			continue
		}
		f.sources = append(f.sources, s)
		names = append(names, s.Name())
	}
	f.name = strings.Join(names, "+")
	return f
}

// Name implements port.ListingSource.
func (f *FallbackSource) Name() string { return f.name }

// LoadListings implements port.ListingSource.
func (f *FallbackSource) LoadListings(ctx context.Context) ([]domain.Listing, error) {
	var errs []error
	for _, s := range f.sources {
		listings, err := s.LoadListings(ctx)
		if err == nil && len(listings) > 0 {
			return listings, nil
		}
		if err == nil {
			err = fmt.Errorf("%s returned no listings", s.Name())
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		slog.Warn("listing source failed, trying next", "source", s.Name(), "error", err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no sources configured", port.ErrSourceUnavailable)
	}
	return nil, fmt.Errorf("%w: %w", port.ErrSourceUnavailable, errors.Join(errs...))
}
