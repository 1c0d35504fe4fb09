// Package blobdoc persists the document as one object in a blob store.
package blobdoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"hospitalcore/internal/blob"
	"hospitalcore/pkg/domain"
)

var _ domain.DocumentStore = (*Store)(nil)

// DefaultKey is used when no object key is configured.
const DefaultKey = "snapshots/state.json"

// Store keeps the document under a single key. Blob Put is create-only, so
// Write deletes the previous object first; a crash between the two leaves
// no document.
type Store struct {
	blobs blob.Store
	key   string
}

// NewStore returns a store writing to key in blobs.
func NewStore(blobs blob.Store, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{blobs: blobs, key: key}
}

// Read downloads the object.
func (s *Store) Read(ctx context.Context) ([]byte, error) {
	_, rc, err := s.blobs.Get(ctx, s.key)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, domain.ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.key, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.key, err)
	}
	return data, nil
}

// Write replaces the object.
func (s *Store) Write(ctx context.Context, doc []byte) error {
	if _, err := s.blobs.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("delete %s: %w", s.key, err)
	}
	if _, err := s.blobs.Put(ctx, s.key, bytes.NewReader(doc), blob.PutOptions{ContentType: "application/json"}); err != nil {
		return fmt.Errorf("put %s: %w", s.key, err)
	}
	return nil
}

// Driver implements domain.DocumentStore.
func (s *Store) Driver() string { return "blob/" + string(s.blobs.Driver()) }

// Key returns the object key.
func (s *Store) Key() string { return s.key }
