// Package intent extracts structured search criteria from free-text queries.
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/arturoeanton/go-property-search/internal/domain"
)

var (
	suffixBudgetRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([mk])`)
	wordBudgetRe   = regexp.MustCompile(`(?:under|below|up\s*to|max|maximum|budget|around|about)\s*(\d+(?:\.\d+)?)\s*(million|m|thousand|k)`)
	plainBudgetRe  = regexp.MustCompile(`budget.*?(\d{4,9})`)
	bedroomsRe     = regexp.MustCompile(`(\d+)\s*b(?:ed|hk)`)
)

type typeKeywords struct {
	propertyType domain.PropertyType
	keywords     []string
}

// Checked in order; the first category with any keyword present wins.
var propertyTypeTable = []typeKeywords{
	{domain.PropertyTypeVilla, []string{"villa", "villas", "townhouse", "town house", "mansion", "detached"}},
	{domain.PropertyTypeApartment, []string{"apartment", "apartments", "flat", "flats", "condo", "condos", "residence", "residences"}},
	{domain.PropertyTypePenthouse, []string{"penthouse", "penthouses", "ph"}},
	{domain.PropertyTypeStudio, []string{"studio", "studios", "0 bed", "zero bed"}},
}

// Ordered gazetteer; the first substring match wins.
var knownLocations = []string{
	"dubai marina", "downtown", "business bay", "jvc", "jumeirah village circle",
	"palm jumeirah", "palm", "meydan", "wasl gate", "ajman", "jumeirah garden city",
	"dubai hills", "dubai land", "arabian ranches", "emirates hills", "dubai sports city",
	"damac hills", "motor city", "international city", "deira",
	"bur dubai", "jumeirah", "al barsha", "dubai silicon oasis", "dso", "jlt", "jumeirah lakes towers",
	"dubai international financial centre", "difc", "sheikh zayed road", "szr",
	"abu dhabi", "sharjah", "ras al khaimah", "rak", "fujairah", "umm al quwain",
	"dubai creek harbour", "creek harbour", "city walk", "bluewaters", "marina",
	"al quoz", "dubai festival city", "festival city", "lakes",
	"zabeel", "almaya", "palm jebel ali", "palm deira", "world islands",
	"jbr", "jumeirah beach residence", "al sufouh", "ud al bai", "remraam",
}

var canonicalLocations = map[string]string{
	"jvc":  "Jumeirah Village Circle",
	"difc": "Dubai International Financial Centre",
	"rak":  "Ras Al Khaimah",
	"jlt":  "Jumeirah Lakes Towers",
	"dso":  "Dubai Silicon Oasis",
	"szr":  "Sheikh Zayed Road",
	"jbr":  "Jumeirah Beach Residence",
	"palm": "Palm Jumeirah",
}

// Parser turns free text into a domain.Intent. It is stateless and safe for concurrent use.
type Parser struct{}

// NewParser creates a new intent parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse extracts all five criteria from text. It never fails; unrecognised text yields an empty intent.
func (p *Parser) Parse(text string) domain.Intent {
	lower := strings.ToLower(text)
	return domain.Intent{
		MaxBudget:    parseBudget(lower),
		MinBedrooms:  parseBedrooms(lower),
		PropertyType: parsePropertyType(lower),
		Location:     parseLocation(lower),
		Status:       parseStatus(lower),
	}
}

func parseBudget(text string) *float64 {
	if m := suffixBudgetRe.FindStringSubmatch(text); m != nil {
		if v, ok := scale(m[1], m[2]); ok {
			return &v
		}
	}
	if m := wordBudgetRe.FindStringSubmatch(text); m != nil {
		if v, ok := scale(m[1], m[2]); ok {
			return &v
		}
	}
	if m := plainBudgetRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
			return &v
		}
	}
	return nil
}

func scale(number, unit string) (float64, bool) {
	v, err := strconv.ParseFloat(number, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	switch unit {
	case "k", "thousand":
		return v * 1_000, true
	case "m", "million":
		return v * 1_000_000, true
	}
	return 0, false
}

func parseBedrooms(text string) *int {
	if m := bedroomsRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return &n
		}
	}
	if strings.Contains(text, "studio") {
		zero := 0
		return &zero
	}
	return nil
}

func parsePropertyType(text string) *domain.PropertyType {
	for _, entry := range propertyTypeTable {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				t := entry.propertyType
				return &t
			}
		}
	}
	return nil
}

func parseLocation(text string) *string {
	for _, loc := range knownLocations {
		if !strings.Contains(text, loc) {
			continue
		}
		name, ok := canonicalLocations[loc]
		if !ok {
			// Casers are stateful, so one per call.
			name = cases.Title(language.English).String(loc)
		}
		return &name
	}
	return nil
}

func parseStatus(text string) *domain.Status {
	var s domain.Status
	switch {
	case strings.Contains(text, "off-plan"), strings.Contains(text, "off plan"):
		s = domain.StatusOffPlan
	case strings.Contains(text, "ready"):
		s = domain.StatusReady
	default:
		return nil
	}
	return &s
}
