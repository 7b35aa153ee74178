package service

import (
	"context"
	"errors"
	"sync"

	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/port"
)

var errDown = errors.New("connection refused")

type memStore struct {
	mu         sync.Mutex
	down       bool
	leads      []domain.Lead
	shortlists map[string]domain.Shortlist
}

func newMemStore() *memStore {
	return &memStore{shortlists: map[string]domain.Shortlist{}}
}

func (m *memStore) SaveLead(_ context.Context, l *domain.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errDown
	}
	m.leads = append(m.leads, *l)
	return nil
}

func (m *memStore) ListLeads(_ context.Context, limit int) ([]domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return nil, errDown
	}
	if len(m.leads) > limit {
		return append([]domain.Lead(nil), m.leads[:limit]...), nil
	}
	return append([]domain.Lead(nil), m.leads...), nil
}

func (m *memStore) SaveShortlist(_ context.Context, s *domain.Shortlist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errDown
	}
	m.shortlists[s.ShareID] = *s
	return nil
}

func (m *memStore) GetShortlist(_ context.Context, id string) (*domain.Shortlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return nil, errDown
	}
	s, ok := m.shortlists[id]
	if !ok {
		return nil, port.ErrShortlistNotFound
	}
	return &s, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	leads []string
	err   error
}

func (n *recordingNotifier) NotifyLead(_ context.Context, l *domain.Lead) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.leads = append(n.leads, l.ID)
	return n.err
}
