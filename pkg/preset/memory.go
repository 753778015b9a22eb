package preset

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps encoded presets in memory. Loaded data never aliases
// saved data.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) List(_ context.Context, messageCode string) ([]string, error) {
	if err := checkKey(messageCode); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.items[messageCode]))
	for name := range s.items[messageCode] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) Load(_ context.Context, messageCode, name string) (map[string]any, error) {
	if err := checkKey(messageCode, name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	raw, ok := s.items[messageCode][name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, messageCode, name)
	}
	return decode(name, raw)
}

func (s *MemoryStore) Save(_ context.Context, messageCode, name string, data map[string]any) error {
	if err := checkKey(messageCode, name); err != nil {
		return err
	}
	raw, err := encode(name, data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items[messageCode] == nil {
		s.items[messageCode] = make(map[string][]byte)
	}
	s.items[messageCode][name] = raw
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, messageCode, name string) error {
	if err := checkKey(messageCode, name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[messageCode][name]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, messageCode, name)
	}
	delete(s.items[messageCode], name)
	return nil
}

func (s *MemoryStore) Rename(_ context.Context, messageCode, oldName, newName string) error {
	if err := checkKey(messageCode, oldName, newName); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.items[messageCode]
	raw, ok := bucket[oldName]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, messageCode, oldName)
	}
	if oldName == newName {
		return nil
	}
	if _, taken := bucket[newName]; taken {
		return fmt.Errorf("%w: %s/%s", ErrExists, messageCode, newName)
	}
	data, err := decode(oldName, raw)
	if err != nil {
		return err
	}
	renamed, err := encode(newName, data)
	if err != nil {
		return err
	}
	delete(bucket, oldName)
	bucket[newName] = renamed
	return nil
}
