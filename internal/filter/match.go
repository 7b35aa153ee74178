package filter

import (
	"strings"

	"github.com/arturoeanton/go-property-search/internal/domain"
)

// BudgetTolerance is the price overshoot accepted at the filter stage.
const BudgetTolerance = 1.1

// LocationMode selects how precisely a requested location is compared with listing fields.
type LocationMode int

const (
	// LocationStrict requires exact fields or space-bounded tokens for single words.
	LocationStrict LocationMode = iota
	// LocationLenient accepts any substring for single words.
	LocationLenient
)

func (m LocationMode) String() string {
	if m == LocationLenient {
		return "lenient"
	}
	return "strict"
}

var villaGroup = []string{"villa", "townhouse"}
var apartmentGroup = []string{"apartment", "penthouse", "studio"}

// MatchesBase applies every non-location constraint carried by the intent.
func MatchesBase(l *domain.Listing, in domain.Intent) bool {
	if in.Status != nil && !strings.EqualFold(strings.TrimSpace(l.Status), string(*in.Status)) {
		return false
	}
	if in.PropertyType != nil && !inTypeGroup(l.PropertyType, *in.PropertyType) {
		return false
	}
	if in.MinBedrooms != nil && l.Bedrooms < *in.MinBedrooms {
		return false
	}
	if in.MaxBudget != nil {
		// Unknown prices cannot satisfy a ceiling.
		if l.Price == nil || *l.Price > *in.MaxBudget*BudgetTolerance {
			return false
		}
	}
	return true
}

// Types are grouped into two buckets: Villa intents match villas and townhouses,
// every other type matches apartments, penthouses and studios.
func inTypeGroup(listingType string, want domain.PropertyType) bool {
	group := apartmentGroup
	if want == domain.PropertyTypeVilla {
		group = villaGroup
	}
	lt := strings.ToLower(strings.TrimSpace(listingType))
	for _, g := range group {
		if lt == g {
			return true
		}
	}
	return false
}

// MatchesLocation compares a requested location with the listing's community and city.
func MatchesLocation(l *domain.Listing, location string, mode LocationMode) bool {
	loc := strings.ToLower(strings.TrimSpace(location))
	if loc == "" {
		return true
	}
	words := strings.Fields(loc)
	community := strings.ToLower(strings.TrimSpace(l.Community))
	city := strings.ToLower(strings.TrimSpace(l.City))

	if len(words) > 1 {
		if containsBoth(community, words[0], words[1]) || containsBoth(city, words[0], words[1]) {
			return true
		}
		if mode == LocationStrict {
			return community == loc || city == loc
		}
		return strings.Contains(community, loc) || strings.Contains(city, loc)
	}

	if mode == LocationLenient {
		return strings.Contains(community, loc) || strings.Contains(city, loc)
	}
	return tokenMatch(community, loc) || tokenMatch(city, loc)
}

func containsBoth(field, a, b string) bool {
	return strings.Contains(field, a) && strings.Contains(field, b)
}

func tokenMatch(field, word string) bool {
	return field == word ||
		strings.HasPrefix(field, word+" ") ||
		strings.HasSuffix(field, " "+word)
}
