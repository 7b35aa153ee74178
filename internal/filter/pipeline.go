// Package filter narrows the listing repository to candidates for an intent,
// relaxing location matching and finally falling back to featured listings.
package filter

import (
	"log/slog"

	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/listing"
)

// Strategy is one stage of the pipeline. Stages are tried in order until one
// that applies to the intent yields a non-empty result.
type Strategy interface {
	// Name returns the stage identifier reported with the result.
	Name() string

	// Applies reports whether the stage should run for this intent.
	Applies(in domain.Intent) bool

	// Filter selects candidates from the snapshot.
	Filter(snap *listing.Snapshot, in domain.Intent) []domain.Listing
}

// Result holds the candidates and the stage that produced them.
type Result struct {
	Listings []domain.Listing
	Stage    string
}

// Pipeline runs its strategies in order over a single snapshot.
type Pipeline struct {
	strategies []Strategy
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithStrategies replaces the default stage list.
func WithStrategies(strategies ...Strategy) Option {
	return func(p *Pipeline) {
		p.strategies = strategies
	}
}

// NewPipeline creates a pipeline with the strict, lenient and featured stages.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		strategies: []Strategy{
			LocationStrategy{Mode: LocationStrict},
			LocationStrategy{Mode: LocationLenient, RequireLocation: true},
			FeaturedStrategy{},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Filter returns the first non-empty result. An empty result with an empty
// stage means nothing matched, including when an explicit location matched nothing.
func (p *Pipeline) Filter(snap *listing.Snapshot, in domain.Intent) Result {
	if snap == nil || snap.Len() == 0 {
		return Result{}
	}
	for _, s := range p.strategies {
		if !s.Applies(in) {
			continue
		}
		out := s.Filter(snap, in)
		if len(out) > 0 {
			p.logger.Debug("filter stage matched", "stage", s.Name(), "count", len(out))
			return Result{Listings: out, Stage: s.Name()}
		}
		if in.HasLocation() {
			p.logger.Info("filter stage matched nothing", "stage", s.Name(), "location", *in.Location, "repository_size", snap.Len())
		}
	}
	return Result{}
}

// LocationStrategy applies the base constraints and then location matching in the given mode.
type LocationStrategy struct {
	Mode            LocationMode
	RequireLocation bool
}

// Name returns "strict" or "lenient".
func (s LocationStrategy) Name() string { return s.Mode.String() }

// Applies is false for location-only stages when the intent has no location.
func (s LocationStrategy) Applies(in domain.Intent) bool {
	return !s.RequireLocation || in.HasLocation()
}

// Filter re-runs the base constraints from scratch against the full snapshot.
func (s LocationStrategy) Filter(snap *listing.Snapshot, in domain.Intent) []domain.Listing {
	return snap.Select(func(l *domain.Listing) bool {
		if !MatchesBase(l, in) {
			return false
		}
		if in.HasLocation() {
			return MatchesLocation(l, *in.Location, s.Mode)
		}
		return true
	})
}

// FeaturedStrategy returns the featured subset, ignoring every other constraint.
// It never runs when a location was requested.
type FeaturedStrategy struct{}

// Name returns "featured".
func (FeaturedStrategy) Name() string { return "featured" }

// Applies only when no location was requested.
func (FeaturedStrategy) Applies(in domain.Intent) bool { return !in.HasLocation() }

// Filter returns the snapshot's featured listings.
func (FeaturedStrategy) Filter(snap *listing.Snapshot, _ domain.Intent) []domain.Listing {
	return snap.Featured()
}
