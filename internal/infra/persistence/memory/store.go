// Package memory provides a process-local document store for tests and
// ephemeral runs. Nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"hospitalcore/pkg/domain"
)

var _ domain.DocumentStore = (*Store)(nil)

// Store keeps the last written document in memory.
type Store struct {
	mu  sync.Mutex
	doc []byte
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// NewStoreWith returns a store pre-seeded with doc.
func NewStoreWith(doc []byte) *Store {
	s := &Store{}
	s.doc = append([]byte(nil), doc...)
	return s
}

// Read returns a copy of the stored document.
func (s *Store) Read(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, domain.ErrNoDocument
	}
	return append([]byte(nil), s.doc...), nil
}

// Write replaces the stored document.
func (s *Store) Write(_ context.Context, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = append([]byte{}, doc...)
	return nil
}

// Driver implements domain.DocumentStore.
func (s *Store) Driver() string { return "memory" }
