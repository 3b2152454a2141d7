package outbox

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore is an outbox for tests and development without Postgres.
type InMemoryStore struct {
	mu        sync.Mutex
	pending   []Entry
	published []Entry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, e)
	return nil
}

func (s *InMemoryStore) Publish(ctx context.Context, limit int, fn func(ctx context.Context, entries []Entry) error) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sort.SliceStable(s.pending, func(i, j int) bool { return s.pending[i].CreatedAt.Before(s.pending[j].CreatedAt) })
	n := min(limit, len(s.pending))
	if n == 0 {
		return 0, nil
	}
	batch := append([]Entry(nil), s.pending[:n]...)
	if err := fn(ctx, batch); err != nil {
		return 0, err
	}
	s.published = append(s.published, batch...)
	s.pending = append([]Entry(nil), s.pending[n:]...)
	return n, nil
}

// Pending returns entries not yet published.
func (s *InMemoryStore) Pending() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.pending...)
}

// Published returns entries already published.
func (s *InMemoryStore) Published() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.published...)
}
