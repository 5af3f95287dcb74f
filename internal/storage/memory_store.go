package storage

import (
	"encoding/json"
	"sync"

	"agromart/internal/apperr"
)

// MemoryStore is an in-memory implementation of Store. Values are kept as
// JSON blobs so Get/Set round-trip exactly like the durable store.
type MemoryStore struct {
	entries map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryStore creates a new instance of MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]byte),
	}
}

// Get decodes the value stored at key into out.
func (s *MemoryStore) Get(key string, out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.entries[key]
	if !ok {
		return apperr.NewNotFound("key", key)
	}
	if err := json.Unmarshal(blob, out); err != nil {
		return &apperr.StorageError{Op: "get", Key: key, Err: err}
	}
	return nil
}

// Set encodes value and stores it at key.
func (s *MemoryStore) Set(key string, value any) error {
	blob, err := json.Marshal(value)
	if err != nil {
		return &apperr.StorageError{Op: "set", Key: key, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = blob
	return nil
}

// Remove deletes the entry at key.
func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
