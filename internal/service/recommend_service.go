package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/filter"
	"github.com/arturoeanton/go-property-search/internal/listing"
	"github.com/arturoeanton/go-property-search/internal/port"
	"github.com/arturoeanton/go-property-search/internal/scoring"
)

// cancellation is checked once per this many scored candidates.
const cancelCheckEvery = 64

// Page is one page of ranked listings.
type Page struct {
	Listings []domain.ScoredListing `json:"listings"`
	Total    int                    `json:"total"`
	HasMore  bool                   `json:"has_more"`
	Stage    string                 `json:"stage,omitempty"`
}

// RepositoryStats describes the snapshot currently served.
type RepositoryStats struct {
	Listings int       `json:"listings"`
	Featured int       `json:"featured"`
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loaded_at"`
}

// RecommendService ranks repository listings against an intent.
type RecommendService struct {
	repo     *listing.Repository
	pipeline *filter.Pipeline
	engine   *scoring.Engine
}

// NewRecommendService creates a recommendation service.
func NewRecommendService(repo *listing.Repository, pipeline *filter.Pipeline, engine *scoring.Engine) *RecommendService {
	return &RecommendService{repo: repo, pipeline: pipeline, engine: engine}
}

// Recommend filters, scores, sorts and paginates. The page covers [offset, offset+limit);
// Total counts every candidate. No candidates is an empty page, not an error.
// A cancelled ctx abandons scoring and returns ctx.Err().
func (s *RecommendService) Recommend(ctx context.Context, in domain.Intent, limit, offset int) (page Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recommendation failed", "panic", fmt.Sprint(r))
			page, err = Page{}, port.ErrInternal
		}
	}()

	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}

	snap := s.repo.Snapshot()
	res := s.pipeline.Filter(snap, in)
	candidates, stage := res.Listings, res.Stage
	if len(candidates) == 0 && !in.HasLocation() {
		candidates, stage = snap.Featured(), "featured"
	}
	if len(candidates) == 0 {
		return Page{Listings: []domain.ScoredListing{}}, nil
	}

	dataset := scoring.NewDataset(candidates)
	scored := make([]domain.ScoredListing, 0, len(candidates))
	for i, l := range candidates {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Page{}, err
			}
		}
		scored = append(scored, domain.NewScoredListing(l, s.engine.Score(l, in, dataset)))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].MatchScore > scored[j].MatchScore
	})

	total := len(scored)
	start := min(offset, total)
	end := start + min(limit, total-start)

	slog.Debug("recommendation ranked", "stage", stage, "candidates", total, "limit", limit, "offset", offset)

	return Page{
		Listings: scored[start:end],
		Total:    total,
		HasMore:  offset < total-limit,
		Stage:    stage,
	}, nil
}

// Featured returns up to limit featured listings in repository order. limit <= 0 means all.
func (s *RecommendService) Featured(limit int) []domain.Listing {
	featured := s.repo.Snapshot().Featured()
	if limit > 0 && limit < len(featured) {
		featured = featured[:limit]
	}
	out := make([]domain.Listing, len(featured))
	copy(out, featured)
	return out
}

// Listing returns one listing by id.
func (s *RecommendService) Listing(id string) (domain.Listing, error) {
	l, ok := s.repo.Snapshot().ByID(id)
	if !ok {
		return domain.Listing{}, fmt.Errorf("listing %q: %w", id, port.ErrListingNotFound)
	}
	return l, nil
}

// Resolve returns the listings for ids in request order, skipping unknown ids.
func (s *RecommendService) Resolve(ids []string) (found []domain.Listing, missing []string) {
	snap := s.repo.Snapshot()
	for _, id := range ids {
		if l, ok := snap.ByID(id); ok {
			found = append(found, l)
		} else {
			missing = append(missing, id)
		}
	}
	return found, missing
}

// Stats describes the current snapshot.
func (s *RecommendService) Stats() RepositoryStats {
	snap := s.repo.Snapshot()
	return RepositoryStats{
		Listings: snap.Len(),
		Featured: len(snap.Featured()),
		Source:   snap.Source(),
		LoadedAt: snap.LoadedAt(),
	}
}
