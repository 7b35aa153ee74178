package domain

// ScoreBreakdownItem is one factor's contribution to a match score.
type ScoreBreakdownItem struct {
	Factor      string  `json:"factor"`
	Weight      float64 `json:"weight"`
	Value       string  `json:"value"`
	Points      float64 `json:"points"`
	Explanation string  `json:"explanation"`
}

// ScoreResult is the scoring output for one (listing, intent) pair.
type ScoreResult struct {
	MatchScore float64              `json:"match_score"`
	Breakdown  []ScoreBreakdownItem `json:"score_breakdown"`
	TopReasons []string             `json:"top_reasons"`
}

// ScoredListing is a listing with its score attached, as served to API callers.
type ScoredListing struct {
	Listing
	MatchScore     float64              `json:"match_score"`
	ScoreBreakdown []ScoreBreakdownItem `json:"score_breakdown"`
	TopReasons     []string             `json:"top_reasons"`
	MatchReasons   []string             `json:"match_reasons"`
}

// NewScoredListing attaches a score result to a listing.
func NewScoredListing(l Listing, r ScoreResult) ScoredListing {
	return ScoredListing{
		Listing:        l,
		MatchScore:     r.MatchScore,
		ScoreBreakdown: r.Breakdown,
		TopReasons:     r.TopReasons,
		MatchReasons:   r.TopReasons,
	}
}
