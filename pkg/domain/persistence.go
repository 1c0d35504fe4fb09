package domain

import (
	"context"
	"errors"
)

// ErrNoDocument is returned by DocumentStore.Read when nothing has been persisted yet.
var ErrNoDocument = errors.New("no persisted document")

// DocumentStore holds exactly one serialized Document. Write replaces the
// stored bytes in full; there is no append or partial update.
type DocumentStore interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, doc []byte) error
	Driver() string
}
