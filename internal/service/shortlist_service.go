package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/port"
)

const shareIDLength = 8

// ShareResult is returned after a shortlist is saved.
type ShareResult struct {
	Success       bool   `json:"success"`
	ShareID       string `json:"share_id"`
	ShareURL      string `json:"share_url"`
	PropertyCount int    `json:"property_count"`
}

// SharedShortlist is a resolved shortlist.
type SharedShortlist struct {
	ShareID    string           `json:"share_id"`
	Properties []domain.Listing `json:"properties"`
	CreatedAt  time.Time        `json:"created_at"`
}

// ShortlistService shares and resolves comparison shortlists.
type ShortlistService struct {
	primary     port.ShortlistStore
	fallback    port.ShortlistStore
	recommender *RecommendService
}

// NewShortlistService creates a shortlist service. primary may be nil.
func NewShortlistService(primary, fallback port.ShortlistStore, recommender *RecommendService) *ShortlistService {
	return &ShortlistService{primary: primary, fallback: fallback, recommender: recommender}
}

// NewShareID returns a short random share id.
func NewShareID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:shareIDLength]
}

// Share saves 1 to 5 listing ids under a new share id.
func (s *ShortlistService) Share(ctx context.Context, ids []string) (*ShareResult, error) {
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			cleaned = append(cleaned, id)
		}
	}
	if len(cleaned) == 0 || len(cleaned) > domain.MaxShortlistSize {
		return nil, fmt.Errorf("%w: between 1 and %d property ids are required", port.ErrInvalidShortlist, domain.MaxShortlistSize)
	}

	sl := &domain.Shortlist{ShareID: NewShareID(), PropertyIDs: cleaned, CreatedAt: time.Now().UTC()}
	if err := s.save(ctx, sl); err != nil {
		return nil, err
	}
	slog.Info("shortlist shared", "share_id", sl.ShareID, "count", len(cleaned))

	return &ShareResult{
		Success:       true,
		ShareID:       sl.ShareID,
		ShareURL:      "/compare?share_id=" + sl.ShareID,
		PropertyCount: len(cleaned),
	}, nil
}

func (s *ShortlistService) save(ctx context.Context, sl *domain.Shortlist) error {
	if s.primary != nil {
		err := s.primary.SaveShortlist(ctx, sl)
		if err == nil {
			return nil
		}
		slog.Warn("primary shortlist store failed, using fallback", "error", err)
	}
	if s.fallback == nil {
		return fmt.Errorf("save shortlist: %w", port.ErrStoreUnavailable)
	}
	if err := s.fallback.SaveShortlist(ctx, sl); err != nil {
		return fmt.Errorf("save shortlist: %w", errors.Join(port.ErrStoreUnavailable, err))
	}
	return nil
}

// Get resolves a shared shortlist to listings in saved order. Ids no longer
// in the repository are skipped.
func (s *ShortlistService) Get(ctx context.Context, shareID string) (*SharedShortlist, error) {
	shareID = strings.TrimSpace(shareID)
	if shareID == "" {
		return nil, port.ErrShortlistNotFound
	}

	sl, err := s.load(ctx, shareID)
	if err != nil {
		return nil, err
	}

	found, missing := s.recommender.Resolve(sl.PropertyIDs)
	if len(missing) > 0 {
		slog.Warn("shortlist references unknown listings", "share_id", shareID, "missing", missing)
	}
	if found == nil {
		found = []domain.Listing{}
	}
	return &SharedShortlist{ShareID: sl.ShareID, Properties: found, CreatedAt: sl.CreatedAt}, nil
}

func (s *ShortlistService) load(ctx context.Context, shareID string) (*domain.Shortlist, error) {
	for _, st := range []port.ShortlistStore{s.primary, s.fallback} {
		if st == nil {
			continue
		}
		sl, err := st.GetShortlist(ctx, shareID)
		if err == nil {
			return sl, nil
		}
		if !errors.Is(err, port.ErrShortlistNotFound) {
			slog.Warn("shortlist lookup failed", "share_id", shareID, "error", err)
		}
	}
	return nil, port.ErrShortlistNotFound
}
