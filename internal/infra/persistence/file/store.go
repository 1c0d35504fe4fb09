// Package file persists the document as a single JSON file on local disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"hospitalcore/pkg/domain"
)

var _ domain.DocumentStore = (*Store)(nil)

// DefaultPath is used when no path is configured.
const DefaultPath = "hospital_data.json"

// Store reads and overwrites one file. With atomic set, writes go to a temp
// file in the same directory which is synced and renamed over the target.
type Store struct {
	path   string
	atomic bool
}

// NewStore returns a store for path.
func NewStore(path string, atomic bool) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	return &Store{path: path, atomic: atomic}, nil
}

// Path returns the file being managed.
func (s *Store) Path() string { return s.path }

// Driver implements domain.DocumentStore.
func (s *Store) Driver() string { return "file" }

// Read returns the file contents, or domain.ErrNoDocument when the file does
// not exist.
func (s *Store) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return data, nil
}

// Write replaces the file contents.
func (s *Store) Write(ctx context.Context, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.atomic {
		if err := os.WriteFile(s.path, doc, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", s.path, err)
		}
		return nil
	}
	return writeAtomic(s.path, doc)
}

func writeAtomic(path string, doc []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".hospital-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(step string, err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%s: %w", step, err)
	}
	if _, err := tmp.Write(doc); err != nil {
		return fail("writing temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing temp file", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
