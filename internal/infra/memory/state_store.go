package memory

import (
	"context"
	"sync"

	"bookfair-service/internal/docstore"
)

// StateStore is an in-memory implementation of docstore.StateStore.
type StateStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewStateStore() *StateStore {
	return &StateStore{values: make(map[string][]byte)}
}

func (s *StateStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *StateStore) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	s.values[key] = stored
	return nil
}

func (s *StateStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
