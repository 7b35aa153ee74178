// Package scoring computes transparent 0-100 match scores for listings against an intent.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/arturoeanton/go-property-search/internal/domain"
)

// Factor weights. They sum to 100.
const (
	WeightBudget       = 35.0
	WeightLocation     = 25.0
	WeightBedrooms     = 20.0
	WeightPropertyType = 10.0
	WeightStatus       = 10.0
)

// Factor names as they appear in score breakdowns.
const (
	FactorBudget       = "Budget Fit"
	FactorLocation     = "Location Match"
	FactorBedrooms     = "Bedrooms Match"
	FactorPropertyType = "Property Type"
	FactorStatus       = "Status Match"
)

// PlaceholderReason is the only top reason emitted when no factor scores.
const PlaceholderReason = "This property may still be of interest"

const (
	maxFactorReasons = 3
	maxTopReasons    = 4
	valueThreshold   = 0.9
	partialLocation  = 0.5
)

// Dataset is the comparison context for the value insight: the median
// price per square foot over listings with a positive ratio.
type Dataset struct {
	median float64
	ok     bool
}

// NewDataset computes the median price per square foot of listings.
func NewDataset(listings []domain.Listing) *Dataset {
	ratios := make([]float64, 0, len(listings))
	for i := range listings {
		if r, ok := listings[i].PricePerSqft(); ok && r > 0 {
			ratios = append(ratios, r)
		}
	}
	if len(ratios) == 0 {
		return &Dataset{}
	}
	sort.Float64s(ratios)
	mid := len(ratios) / 2
	median := ratios[mid]
	if len(ratios)%2 == 0 {
		median = (ratios[mid-1] + ratios[mid]) / 2
	}
	return &Dataset{median: median, ok: true}
}

// Median returns the median price per square foot, if any listing had one.
func (d *Dataset) Median() (float64, bool) {
	if d == nil {
		return 0, false
	}
	return d.median, d.ok
}

// Engine scores listings. It holds no state and is safe for concurrent use.
type Engine struct{}

// NewEngine creates a scoring engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Score evaluates one listing. Factors whose intent field is nil are omitted;
// dataset may be nil, in which case no value insight is produced.
func (e *Engine) Score(l domain.Listing, in domain.Intent, dataset *Dataset) domain.ScoreResult {
	breakdown := make([]domain.ScoreBreakdownItem, 0, 5)
	var total float64
	add := func(item domain.ScoreBreakdownItem, raw float64) {
		item.Points = round1(raw)
		breakdown = append(breakdown, item)
		total += raw
	}

	if in.MaxBudget != nil {
		item, raw := scoreBudget(l, *in.MaxBudget)
		add(item, raw)
	}
	if in.HasLocation() {
		if item, raw, ok := scoreLocation(l, *in.Location); ok {
			add(item, raw)
		}
	}
	if in.MinBedrooms != nil {
		item, raw := scoreBedrooms(l, *in.MinBedrooms)
		add(item, raw)
	}
	if in.PropertyType != nil {
		item, raw := scorePropertyType(l, *in.PropertyType)
		add(item, raw)
	}
	if in.Status != nil {
		item, raw := scoreStatus(l, *in.Status)
		add(item, raw)
	}

	return domain.ScoreResult{
		MatchScore: round1(total),
		Breakdown:  breakdown,
		TopReasons: topReasons(breakdown, valueInsight(l, dataset)),
	}
}

func scoreBudget(l domain.Listing, budget float64) (domain.ScoreBreakdownItem, float64) {
	item := domain.ScoreBreakdownItem{Factor: FactorBudget, Weight: WeightBudget}
	if l.Price == nil || *l.Price <= 0 || budget <= 0 {
		item.Value = "Price on request"
		item.Explanation = "Price not available"
		return item, 0
	}
	price := *l.Price
	item.Value = fmt.Sprintf("AED %.2fM", price/1e6)

	var points float64
	switch {
	case price <= budget:
		points = WeightBudget
		item.Explanation = fmt.Sprintf("Within your budget (AED %.2fM ≤ AED %.2fM)", price/1e6, budget/1e6)
	case price <= budget*1.1:
		excessPct := (price - budget) / budget * 100
		points = math.Max(0, WeightBudget*(1-excessPct/10))
		item.Explanation = fmt.Sprintf("Slightly above budget (AED %.2fM, %.0f%% over)", price/1e6, excessPct)
	default:
		item.Explanation = fmt.Sprintf("Above budget (AED %.2fM > AED %.2fM)", price/1e6, budget/1e6)
	}
	return item, points
}

func scoreLocation(l domain.Listing, location string) (domain.ScoreBreakdownItem, float64, bool) {
	want := strings.ToLower(strings.TrimSpace(location))
	words := strings.Fields(want)
	if len(words) == 0 {
		return domain.ScoreBreakdownItem{}, 0, false
	}
	display := l.LocationName()
	have := strings.ToLower(strings.TrimSpace(display))
	if display == "" {
		display = "Unknown"
	}
	item := domain.ScoreBreakdownItem{Factor: FactorLocation, Weight: WeightLocation, Value: display}

	var points float64
	switch {
	case have == want:
		points = WeightLocation
		item.Explanation = "Exact location match: " + display
	case len(words) > 1:
		matched := 0
		for _, w := range words {
			if have != "" && strings.Contains(have, w) {
				matched++
			}
		}
		if matched == len(words) {
			points = WeightLocation
			item.Explanation = "Matches preferred area: " + display
		} else {
			points = float64(matched) / float64(len(words)) * WeightLocation * partialLocation
			item.Explanation = "Partial location match: " + display
		}
	case have != "" && strings.Contains(have, words[0]):
		points = WeightLocation
		item.Explanation = "Matches preferred area: " + display
	default:
		item.Explanation = fmt.Sprintf("Location: %s (doesn't match '%s')", display, location)
	}
	return item, points, true
}

func bedroomLabel(n int) string {
	if n == 0 {
		return "Studio"
	}
	return fmt.Sprintf("%dBR", n)
}

func scoreBedrooms(l domain.Listing, want int) (domain.ScoreBreakdownItem, float64) {
	label := bedroomLabel(l.Bedrooms)
	item := domain.ScoreBreakdownItem{Factor: FactorBedrooms, Weight: WeightBedrooms, Value: label}

	diff := l.Bedrooms - want
	if diff < 0 {
		diff = -diff
	}
	var points float64
	switch diff {
	case 0:
		points = WeightBedrooms
		item.Explanation = "Bedrooms match: " + label
	case 1:
		points = WeightBedrooms / 2
		item.Explanation = fmt.Sprintf("Bedrooms close: %s (requested %dBR)", label, want)
	default:
		item.Explanation = fmt.Sprintf("Bedrooms don't match: %s (requested %dBR)", label, want)
	}
	return item, points
}

func scorePropertyType(l domain.Listing, want domain.PropertyType) (domain.ScoreBreakdownItem, float64) {
	display := valueOrUnknown(l.PropertyType)
	item := domain.ScoreBreakdownItem{Factor: FactorPropertyType, Weight: WeightPropertyType, Value: display}

	have := strings.ToLower(strings.TrimSpace(l.PropertyType))
	var match bool
	switch want {
	case domain.PropertyTypeVilla:
		match = strings.Contains(have, "villa") || strings.Contains(have, "townhouse") || strings.Contains(have, "town house")
	case domain.PropertyTypeApartment:
		match = strings.Contains(have, "apartment") || strings.Contains(have, "penthouse") || strings.Contains(have, "studio")
	case domain.PropertyTypeStudio:
		match = l.Bedrooms == 0 || strings.Contains(have, "studio")
	default:
		match = strings.Contains(have, strings.ToLower(string(want)))
	}

	if match {
		item.Explanation = "Property type matches: " + display
		return item, WeightPropertyType
	}
	item.Explanation = fmt.Sprintf("Property type: %s (requested %s)", display, want)
	return item, 0
}

func scoreStatus(l domain.Listing, want domain.Status) (domain.ScoreBreakdownItem, float64) {
	display := valueOrUnknown(l.Status)
	item := domain.ScoreBreakdownItem{Factor: FactorStatus, Weight: WeightStatus, Value: display}

	have := strings.ToLower(strings.TrimSpace(l.Status))
	if strings.Contains(have, strings.ToLower(string(want))) {
		item.Explanation = "Status matches: " + display
		return item, WeightStatus
	}
	item.Explanation = fmt.Sprintf("Status: %s (requested %s)", display, want)
	return item, 0
}

func valueInsight(l domain.Listing, dataset *Dataset) string {
	median, ok := dataset.Median()
	if !ok {
		return ""
	}
	ratio, ok := l.PricePerSqft()
	if !ok || ratio >= median*valueThreshold {
		return ""
	}
	p := message.NewPrinter(language.English)
	return p.Sprintf("Great value: AED %d/sqft (below median AED %d/sqft)", int64(ratio), int64(median))
}

func topReasons(breakdown []domain.ScoreBreakdownItem, insight string) []string {
	scored := make([]domain.ScoreBreakdownItem, 0, len(breakdown))
	for _, item := range breakdown {
		if item.Points > 0 {
			scored = append(scored, item)
		}
	}
	if len(scored) == 0 {
		return []string{PlaceholderReason}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Points > scored[j].Points })

	reasons := make([]string, 0, maxTopReasons)
	for i := 0; i < len(scored) && i < maxFactorReasons; i++ {
		reasons = append(reasons, scored[i].Explanation)
	}
	if insight != "" && len(reasons) < maxTopReasons {
		reasons = append(reasons, insight)
	}
	return reasons
}

func valueOrUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
