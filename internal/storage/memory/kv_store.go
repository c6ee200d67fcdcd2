package memory

import (
	"context"
	"sync"

	"token-ledger/internal/storage"
)

// KVStore is an in-memory implementation of storage.Backend.
type KVStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewKVStore creates a new in-memory key-value store.
func NewKVStore() *KVStore {
	return &KVStore{
		data: make(map[string][]byte),
	}
}

// Get returns the value stored under key, or (nil, nil) if absent.
func (s *KVStore) Get(_ context.Context, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.data[string(key)]
	if !exists {
		return nil, nil
	}

	// Return a copy
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// WriteBatch applies all writes under a single lock.
func (s *KVStore) WriteBatch(_ context.Context, writes []storage.Write) error {
	for _, w := range writes {
		if len(w.Key) == 0 {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range writes {
		if w.Delete {
			delete(s.data, string(w.Key))
			continue
		}
		// Store a copy to prevent external mutation
		v := make([]byte, len(w.Value))
		copy(v, w.Value)
		s.data[string(w.Key)] = v
	}
	return nil
}

// Len returns the number of stored keys.
func (s *KVStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Verify interface compliance at compile time.
var _ storage.Backend = (*KVStore)(nil)
