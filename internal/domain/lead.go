package domain

import "time"

// Lead is a contact request captured from a prospective buyer.
type Lead struct {
	ID         string    `json:"id"          db:"id"`
	Name       string    `json:"name"        db:"name"`
	Contact    string    `json:"contact"     db:"contact"`
	Interest   string    `json:"interest"    db:"interest"`
	Email      string    `json:"email"       db:"email"`
	Phone      string    `json:"phone"       db:"phone"`
	Message    string    `json:"message"     db:"message"`
	PropertyID string    `json:"property_id" db:"property_id"`
	Source     string    `json:"source"      db:"source"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"`
}

// Shortlist is a shareable set of listing ids.
type Shortlist struct {
	ShareID     string    `json:"share_id"     db:"share_id"`
	PropertyIDs []string  `json:"property_ids"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
}

// Lead storage backends, recorded on each saved lead.
const (
	LeadSourcePrimary  = "primary"
	LeadSourceFallback = "fallback"
)

// MaxShortlistSize is the maximum number of listings in one shortlist.
const MaxShortlistSize = 5
