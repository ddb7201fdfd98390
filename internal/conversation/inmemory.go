package conversation

import (
	"context"
	"sync"
)

// InMemoryStore keeps conversations in process memory. This is the
// default backend; histories live only as long as the serving process.
type InMemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]Turn
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{turns: make(map[string][]Turn)}
}

func (s *InMemoryStore) Get(_ context.Context, userID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.turns[userID]
	if len(arr) == 0 {
		return nil, nil
	}
	out := make([]Turn, len(arr))
	copy(out, arr)
	return out, nil
}

func (s *InMemoryStore) Put(_ context.Context, userID string, turns []Turn) error {
	cp := make([]Turn, len(turns))
	copy(cp, turns)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(cp) == 0 {
		delete(s.turns, userID)
		return nil
	}
	s.turns[userID] = cp
	return nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns), nil
}

func (s *InMemoryStore) Close() error { return nil }
