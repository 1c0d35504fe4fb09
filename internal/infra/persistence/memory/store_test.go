package memory

import (
	"context"
	"errors"
	"testing"

	"hospitalcore/pkg/domain"
)

func TestStoreReadBeforeWrite(t *testing.T) {
	if _, err := NewStore().Read(context.Background()); !errors.Is(err, domain.ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
}

func TestStoreWriteReplacesAndCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStoreWith([]byte(`{"queue":["a"]}`))
	buf := []byte(`{"queue":["b"]}`)
	if err := s.Write(ctx, buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf[0] = 'X'
	got, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != `{"queue":["b"]}` {
		t.Fatalf("unexpected document %s", got)
	}
	got[0] = 'Y'
	again, _ := s.Read(ctx)
	if again[0] != '{' {
		t.Fatalf("Read must return a copy")
	}
	if s.Driver() != "memory" {
		t.Fatalf("driver got %q", s.Driver())
	}
}

func TestStoreEmptyWriteIsStillADocument(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if err := s.Write(ctx, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.Read(ctx); err != nil {
		t.Fatalf("expected empty document, got %v", err)
	}
}
