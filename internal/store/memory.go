package store

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned when a preference key has never been written.
	ErrNotFound = errors.New("preference not found")
)

// Preferences is a namespaced string key/value store, the contract every
// settings backend (memory, sqlite, valkey) satisfies.
type Preferences interface {
	GetString(ctx context.Context, key string) (string, error)
	// PutStrings writes all values together; readers never see half of them.
	PutStrings(ctx context.Context, values map[string]string) error
	Close() error
}

// MemoryStore is a concurrency-safe in-memory implementation of Preferences.
type MemoryStore struct {
	mu sync.RWMutex

	namespace string
	// key: namespace-qualified key
	data map[string]string
}

// NewMemoryStore creates a new MemoryStore for namespace.
func NewMemoryStore(namespace string) *MemoryStore {
	return &MemoryStore{
		namespace: namespace,
		data:      make(map[string]string),
	}
}

// GetString returns the value stored under key.
func (s *MemoryStore) GetString(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[qualify(s.namespace, key)]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// PutStrings overwrites every key in values.
func (s *MemoryStore) PutStrings(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		s.data[qualify(s.namespace, k)] = v
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func qualify(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}
