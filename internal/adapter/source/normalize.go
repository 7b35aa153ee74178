// Package source loads listings from flat files and the PropertyFinder API.
package source

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mmcloughlin/geohash"

	"github.com/arturoeanton/go-property-search/internal/domain"
)

// Defaults substituted for missing fields.
const (
	DefaultCity            = "Dubai"
	DefaultPropertyType    = "Apartment"
	DefaultStatus          = "Ready"
	DefaultListingCategory = "Buy"
	DefaultTitle           = "Property"
	geohashPrecision       = 7
)

var numberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

var priceNoise = strings.NewReplacer(",", "", "AED", "", "USD", "", "$", "")

// parsePrice accepts numbers and strings such as "1,480,000.00 AED".
func parsePrice(v any) *float64 {
	switch p := v.(type) {
	case float64:
		return finite(p)
	case string:
		cleaned := strings.TrimSpace(priceNoise.Replace(p))
		if cleaned == "" {
			return nil
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		return finite(f)
	}
	return nil
}

// parseSize extracts the first number from values such as "1,500 sqft"; it never returns less than 1.
func parseSize(v any) *float64 {
	size := domain.MinSizeSqft
	switch s := v.(type) {
	case float64:
		size = s
	case string:
		if m := numberRe.FindString(strings.ReplaceAll(s, ",", "")); m != "" {
			size, _ = strconv.ParseFloat(m, 64)
		}
	}
	if math.IsNaN(size) || size < domain.MinSizeSqft {
		size = domain.MinSizeSqft
	}
	return &size
}

// parseCount reads bedroom or bathroom counts. "studio", "none" and blanks are 0.
func parseCount(v any) int {
	switch c := v.(type) {
	case float64:
		if math.IsNaN(c) || c < 0 {
			return 0
		}
		return int(c)
	case string:
		s := strings.ToLower(strings.TrimSpace(c))
		switch s {
		case "", "studio", "none", "null", "nan":
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < 0 {
			return 0
		}
		return int(f)
	}
	return 0
}

// splitLocation derives community and city from "Community, Area, City".
func splitLocation(name, fullName string) (community, city string) {
	community, city = strings.TrimSpace(name), DefaultCity
	var parts []string
	for _, p := range strings.Split(fullName, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 1 {
		community, city = parts[0], parts[len(parts)-1]
	}
	if community == "" {
		community = DefaultCity
	}
	return community, city
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// stringValue renders ids that may arrive as numbers or strings.
func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case nil:
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// withGeohash sets the geohash cell when both coordinates are known and valid.
func withGeohash(l *domain.Listing) {
	if l.Latitude == nil || l.Longitude == nil {
		return
	}
	lat, lon := *l.Latitude, *l.Longitude
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 || (lat == 0 && lon == 0) {
		return
	}
	l.Geohash = geohash.EncodeWithPrecision(lat, lon, geohashPrecision)
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
