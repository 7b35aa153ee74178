package service

import (
	"sync"
	"time"
)

// Job states.
const (
	JobRunning  = "running"
	JobComplete = "complete"
	JobError    = "error"
)

// JobStatus represents the state of a listing refresh run.
type JobStatus struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Source      string    `json:"source"`
	Listings    int       `json:"listings"`
	Previous    int       `json:"previous"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// Done reports whether the job has finished.
func (j JobStatus) Done() bool {
	return j.Status == JobComplete || j.Status == JobError
}

// JobTracker keeps refresh jobs in memory and fans updates out to subscribers.
type JobTracker struct {
	mu   sync.RWMutex
	jobs map[string]*JobStatus
	subs map[string][]chan JobStatus
}

// NewJobTracker creates a new job tracker.
func NewJobTracker() *JobTracker {
	return &JobTracker{
		jobs: make(map[string]*JobStatus),
		subs: make(map[string][]chan JobStatus),
	}
}

// CreateJob registers a running job.
func (t *JobTracker) CreateJob(id, source string, previous int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[id] = &JobStatus{
		ID:        id,
		Status:    JobRunning,
		Source:    source,
		Previous:  previous,
		StartedAt: time.Now(),
	}
}

// FinishJob records the outcome and notifies subscribers.
func (t *JobTracker) FinishJob(id string, listings int, err error) {
	t.mu.Lock()
	job, ok := t.jobs[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	job.Listings = listings
	job.Status = JobComplete
	if err != nil {
		job.Status = JobError
		job.Error = err.Error()
	}
	job.CompletedAt = time.Now()
	snapshot := *job

	// Unsubscribe closes channels under the same lock.
	for _, ch := range t.subs[id] {
		select {
		case ch <- snapshot:
		default:
		}
	}
	t.mu.Unlock()
}

// GetJob returns a copy of a job status.
func (t *JobTracker) GetJob(id string) (*JobStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[id]
	if !ok {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

// Subscribe returns a channel that receives job updates.
func (t *JobTracker) Subscribe(id string) chan JobStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan JobStatus, 4)
	t.subs[id] = append(t.subs[id], ch)
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (t *JobTracker) Unsubscribe(id string, ch chan JobStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	subs := t.subs[id]
	for i, s := range subs {
		if s == ch {
			t.subs[id] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(t.subs[id]) == 0 {
		delete(t.subs, id)
	}
	close(ch)
}
