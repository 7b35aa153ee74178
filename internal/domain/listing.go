package domain

import (
	"math"
	"strings"
)

// Listing is one property record held by the listing repository.
// Nullable attributes are pointers; nil means "unknown".
type Listing struct {
	ID           string   `json:"id"            db:"id"`
	Title        string   `json:"title"         db:"title"`
	Price        *float64 `json:"price_aed"     db:"price_aed"`
	Community    string   `json:"community"     db:"community"`
	City         string   `json:"city"          db:"city"`
	PropertyType string   `json:"property_type" db:"property_type"`
	Bedrooms     int      `json:"bedrooms"      db:"bedrooms"`
	Bathrooms    *int     `json:"bathrooms"     db:"bathrooms"`
	SizeSqft     *float64 `json:"size_sqft"     db:"size_sqft"`
	Status       string   `json:"status"        db:"status"`
	ImageURL     string   `json:"image_url"     db:"image_url"`
	Featured     bool     `json:"featured"      db:"featured"`
	ClusterLabel *string  `json:"cluster_label" db:"cluster_label"`

	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	Geohash         string   `json:"geohash,omitempty"`
	Developer       string   `json:"developer,omitempty"`
	Handover        string   `json:"handover,omitempty"`
	PaymentPlan     string   `json:"payment_plan,omitempty"`
	Amenities       []string `json:"amenities,omitempty"`
	ListingCategory string   `json:"listing_category,omitempty"`
}

// MinSizeSqft is the floor applied to listing sizes so derived ratios never divide by zero.
const MinSizeSqft = 1.0

// Normalize applies the safe defaults every loaded listing must satisfy.
func (l *Listing) Normalize() {
	l.ID = strings.TrimSpace(l.ID)
	l.Title = strings.TrimSpace(l.Title)
	l.Community = strings.TrimSpace(l.Community)
	l.City = strings.TrimSpace(l.City)
	l.PropertyType = strings.TrimSpace(l.PropertyType)
	l.Status = strings.TrimSpace(l.Status)

	if l.Bedrooms < 0 {
		l.Bedrooms = 0
	}
	if l.Bathrooms != nil && *l.Bathrooms < 0 {
		zero := 0
		l.Bathrooms = &zero
	}
	if l.Price != nil && (*l.Price <= 0 || math.IsNaN(*l.Price) || math.IsInf(*l.Price, 0)) {
		l.Price = nil
	}
	if l.SizeSqft != nil && (math.IsNaN(*l.SizeSqft) || *l.SizeSqft < MinSizeSqft) {
		size := MinSizeSqft
		l.SizeSqft = &size
	}
}

// PricePerSqft returns price divided by size when both are known and positive.
func (l *Listing) PricePerSqft() (float64, bool) {
	if l.Price == nil || l.SizeSqft == nil || *l.Price <= 0 || *l.SizeSqft <= 0 {
		return 0, false
	}
	return *l.Price / *l.SizeSqft, true
}

// LocationName returns the community, falling back to the city when the community is empty.
func (l *Listing) LocationName() string {
	if l.Community != "" {
		return l.Community
	}
	return l.City
}

// Float returns a pointer to v. Handy for building listings and intents.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
