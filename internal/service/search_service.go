package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/intent"
	"github.com/arturoeanton/go-property-search/internal/port"
)

// Chat request limits.
const (
	MaxMessageLength = 500
	DefaultPageSize  = 20
	MaxPageSize      = 100
)

// SearchRequest is one conversational search turn.
type SearchRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
}

// Pagination describes the page returned with a search result.
type Pagination struct {
	Total        int  `json:"total"`
	Limit        int  `json:"limit"`
	Offset       int  `json:"offset"`
	HasMore      bool `json:"has_more"`
	CurrentCount int  `json:"current_count"`
}

// SearchResult is the reply to a search turn.
type SearchResult struct {
	Text            string                 `json:"text"`
	Recommendations []domain.ScoredListing `json:"recommendations"`
	Intent          domain.Intent          `json:"intent"`
	Pagination      Pagination             `json:"pagination"`
	Narrated        bool                   `json:"narrated"`
}

// SearchService turns a free-text message into narrated, ranked recommendations.
type SearchService struct {
	parser      *intent.Parser
	recommender *RecommendService
	narrator    port.Narrator
	timeout     time.Duration
}

// NewSearchService creates a search service. narrator may be nil, in which case
// every reply uses the template narration.
func NewSearchService(parser *intent.Parser, recommender *RecommendService, narrator port.Narrator, timeout time.Duration) *SearchService {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SearchService{parser: parser, recommender: recommender, narrator: narrator, timeout: timeout}
}

// NormalizeRequest validates the message and applies paging defaults.
func NormalizeRequest(req SearchRequest) (SearchRequest, error) {
	req.Message = strings.TrimSpace(req.Message)
	n := utf8.RuneCountInString(req.Message)
	if n == 0 {
		return req, fmt.Errorf("%w: message is required", port.ErrInvalidQuery)
	}
	if n > MaxMessageLength {
		return req, fmt.Errorf("%w: message exceeds %d characters", port.ErrInvalidQuery, MaxMessageLength)
	}
	if req.Limit == 0 {
		req.Limit = DefaultPageSize
	}
	if req.Limit < 1 || req.Limit > MaxPageSize {
		return req, fmt.Errorf("%w: limit must be between 1 and %d", port.ErrInvalidQuery, MaxPageSize)
	}
	if req.Offset < 0 {
		return req, fmt.Errorf("%w: offset must not be negative", port.ErrInvalidQuery)
	}
	return req, nil
}

// Search parses the message, ranks listings and narrates the page.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	req, err := NormalizeRequest(req)
	if err != nil {
		return nil, err
	}

	in := s.parser.Parse(req.Message)
	slog.Info("search", "session_id", req.SessionID, "intent_empty", in.IsEmpty(), "limit", req.Limit, "offset", req.Offset)

	page, err := s.recommender.Recommend(ctx, in, req.Limit, req.Offset)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}

	text, narrated := s.narrate(ctx, req.Message, page.Listings, in)

	return &SearchResult{
		Text:            text,
		Recommendations: page.Listings,
		Intent:          in,
		Pagination: Pagination{
			Total:        page.Total,
			Limit:        req.Limit,
			Offset:       req.Offset,
			HasMore:      page.HasMore,
			CurrentCount: len(page.Listings),
		},
		Narrated: narrated,
	}, nil
}

// Parse exposes intent extraction on its own.
func (s *SearchService) Parse(text string) domain.Intent {
	return s.parser.Parse(text)
}

func (s *SearchService) narrate(ctx context.Context, query string, listings []domain.ScoredListing, in domain.Intent) (string, bool) {
	if s.narrator == nil {
		return FallbackNarration(len(listings), in), false
	}

	nctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.narrator.Narrate(nctx, query, listings, in)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, true
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		slog.Warn("narration timed out, using template", "timeout", s.timeout)
	case err != nil:
		slog.Warn("narration failed, using template", "error", err)
	}
	return FallbackNarration(len(listings), in), false
}
