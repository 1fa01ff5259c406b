package save

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is a Store holding JSON-encoded records in memory.
type MemoryStore struct {
	mu    sync.RWMutex
	chars map[string][]byte
	halls map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chars: make(map[string][]byte),
		halls: make(map[string][]byte),
	}
}

func (s *MemoryStore) LoadChar(_ context.Context, id string) (CharData, error) {
	var out CharData
	if err := s.load(s.chars, id, &out); err != nil {
		return CharData{}, fmt.Errorf("loading char %q: %w", id, err)
	}
	return out, nil
}

func (s *MemoryStore) SaveChar(_ context.Context, data CharData, id string) error {
	if err := s.store(s.chars, id, data); err != nil {
		return fmt.Errorf("saving char %q: %w", id, err)
	}
	return nil
}

func (s *MemoryStore) DeleteChar(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chars[id]; !ok {
		return fmt.Errorf("deleting char %q: %w", id, ErrNotFound)
	}
	delete(s.chars, id)
	return nil
}

func (s *MemoryStore) LoadHall(_ context.Context, id string) (HallData, error) {
	var out HallData
	if err := s.load(s.halls, id, &out); err != nil {
		return HallData{}, fmt.Errorf("loading hall %q: %w", id, err)
	}
	return out, nil
}

func (s *MemoryStore) SaveHall(_ context.Context, data HallData, id string) error {
	if err := s.store(s.halls, id, data); err != nil {
		return fmt.Errorf("saving hall %q: %w", id, err)
	}
	return nil
}

func (s *MemoryStore) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.chars)
	clear(s.halls)
	return nil
}

func (s *MemoryStore) load(m map[string][]byte, id string, out any) error {
	s.mu.RLock()
	data, ok := m[id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(data, out)
}

func (s *MemoryStore) store(m map[string][]byte, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	m[id] = data
	s.mu.Unlock()
	return nil
}
