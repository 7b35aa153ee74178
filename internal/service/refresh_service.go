package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arturoeanton/go-property-search/internal/listing"
	"github.com/arturoeanton/go-property-search/internal/port"
)

// ErrEmptyLoad is returned when a source yields no listings.
var ErrEmptyLoad = errors.New("source returned no listings")

// Refresher reloads the listing repository from a source. It is the
// repository's only writer; loads are serialized.
type Refresher struct {
	source   port.ListingSource
	labeler  port.Labeler
	repo     *listing.Repository
	tracker  *JobTracker
	interval time.Duration
	timeout  time.Duration

	mu sync.Mutex
	wg sync.WaitGroup
}

// NewRefresher creates a refresher. labeler may be nil. interval 0 disables periodic reloads.
func NewRefresher(source port.ListingSource, labeler port.Labeler, repo *listing.Repository, tracker *JobTracker, interval, timeout time.Duration) *Refresher {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if tracker == nil {
		tracker = NewJobTracker()
	}
	return &Refresher{
		source:   source,
		labeler:  labeler,
		repo:     repo,
		tracker:  tracker,
		interval: interval,
		timeout:  timeout,
	}
}

// Tracker returns the job tracker for manual refreshes.
func (r *Refresher) Tracker() *JobTracker {
	return r.tracker
}

// Refresh loads, labels and swaps in a new snapshot. On error or an empty
// load the current snapshot stays in place.
func (r *Refresher) Refresh(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	listings, err := r.source.LoadListings(ctx)
	if err != nil {
		slog.Error("listing refresh failed, keeping current snapshot", "source", r.source.Name(), "error", err)
		return 0, fmt.Errorf("load %s: %w", r.source.Name(), err)
	}
	if len(listings) == 0 {
		slog.Warn("listing refresh returned nothing, keeping current snapshot", "source", r.source.Name())
		return 0, fmt.Errorf("load %s: %w", r.source.Name(), ErrEmptyLoad)
	}

	if r.labeler != nil {
		r.labeler.Label(listings)
	}
	snap := r.repo.Replace(listings, r.source.Name())

	slog.Info("listings refreshed",
		"source", r.source.Name(),
		"listings", snap.Len(),
		"featured", len(snap.Featured()),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return snap.Len(), nil
}

// Start performs the initial load and, if an interval is set, reloads in the
// background until ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	if _, err := r.Refresh(ctx); err != nil {
		slog.Warn("initial listing load failed", "error", err)
	}
	if r.interval <= 0 {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = r.Refresh(ctx)
			}
		}
	}()
}

// Trigger starts an asynchronous refresh and returns its job id.
func (r *Refresher) Trigger(ctx context.Context) string {
	id := uuid.NewString()
	r.tracker.CreateJob(id, r.source.Name(), r.repo.Snapshot().Len())

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		n, err := r.Refresh(context.WithoutCancel(ctx))
		r.tracker.FinishJob(id, n, err)
	}()
	return id
}

// Job returns a refresh job by id.
func (r *Refresher) Job(id string) (*JobStatus, error) {
	job, ok := r.tracker.GetJob(id)
	if !ok {
		return nil, fmt.Errorf("refresh job %q: %w", id, port.ErrJobNotFound)
	}
	return job, nil
}

// Wait blocks until background refreshes have stopped.
func (r *Refresher) Wait() {
	r.wg.Wait()
}
