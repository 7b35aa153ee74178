// Package listing holds the in-memory listing collection behind an atomically swapped snapshot.
package listing

import (
	"sync/atomic"
	"time"

	"github.com/arturoeanton/go-property-search/internal/domain"
)

// Snapshot is an immutable view of the listing collection.
// Readers must not modify the returned slices or listings.
type Snapshot struct {
	listings []domain.Listing
	featured []domain.Listing
	byID     map[string]int
	loadedAt time.Time
	source   string
}

func newSnapshot(listings []domain.Listing, source string) *Snapshot {
	s := &Snapshot{
		listings: make([]domain.Listing, 0, len(listings)),
		byID:     make(map[string]int, len(listings)),
		loadedAt: time.Now(),
		source:   source,
	}
	for _, l := range listings {
		l.Normalize()
		if l.ID != "" {
			if _, dup := s.byID[l.ID]; dup {
				continue
			}
			s.byID[l.ID] = len(s.listings)
		}
		s.listings = append(s.listings, l)
		if l.Featured {
			s.featured = append(s.featured, l)
		}
	}
	return s
}

// All returns every listing in load order.
func (s *Snapshot) All() []domain.Listing {
	return s.listings
}

// Featured returns the flag-true listings in load order.
func (s *Snapshot) Featured() []domain.Listing {
	return s.featured
}

// ByID looks up a listing by its identifier.
func (s *Snapshot) ByID(id string) (domain.Listing, bool) {
	i, ok := s.byID[id]
	if !ok {
		return domain.Listing{}, false
	}
	return s.listings[i], true
}

// Select returns the listings for which keep reports true, preserving load order.
func (s *Snapshot) Select(keep func(*domain.Listing) bool) []domain.Listing {
	var out []domain.Listing
	for i := range s.listings {
		if keep(&s.listings[i]) {
			out = append(out, s.listings[i])
		}
	}
	return out
}

// Len returns the number of listings.
func (s *Snapshot) Len() int {
	return len(s.listings)
}

// LoadedAt returns when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Source names the data source the snapshot was loaded from.
func (s *Snapshot) Source() string {
	return s.source
}

// Repository owns the canonical listing collection. Reads never lock;
// Replace builds a fresh snapshot and swaps it in as a single step.
type Repository struct {
	current atomic.Pointer[Snapshot]
}

// NewRepository creates a repository holding an empty snapshot.
func NewRepository() *Repository {
	r := &Repository{}
	r.current.Store(newSnapshot(nil, ""))
	return r
}

// Snapshot returns the current snapshot. Callers should load it once per request.
func (r *Repository) Snapshot() *Snapshot {
	return r.current.Load()
}

// Replace swaps in a new collection. Listings are normalized and de-duplicated by id
// (first occurrence wins); the caller's slice is not retained.
func (r *Repository) Replace(listings []domain.Listing, source string) *Snapshot {
	snap := newSnapshot(listings, source)
	r.current.Store(snap)
	return snap
}
