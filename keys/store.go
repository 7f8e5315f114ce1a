package keys

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrKeyNotFound indicates no signing key exists under the requested key
// id, even after a refresh from the identity provider.
var ErrKeyNotFound = errors.New("keys: signing key not found")

// Store persists PEM-encoded signing-key material by key id. Entries
// never expire; implementations must be safe for concurrent use.
// Concurrent writers may race on the same id; last writer wins, and the
// material is idempotently derivable from the provider either way.
type Store interface {
	// Get returns the material stored under kid, or an error wrapping
	// ErrKeyNotFound when absent.
	Get(ctx context.Context, kid string) ([]byte, error)

	// Put stores material under kid, replacing any previous value.
	Put(ctx context.Context, kid string, material []byte) error
}

// MemoryStore is the process-local Store a Cache uses by default.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string][]byte)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, kid string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	material, ok := s.keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
	}
	return append([]byte(nil), material...), nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, kid string, material []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[kid] = append([]byte(nil), material...)
	return nil
}

// Len reports the number of cached keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}
