// Package redis persists the document under a single Redis key.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hospitalcore/pkg/domain"
)

var _ domain.DocumentStore = (*Store)(nil)

// DefaultKey is used when no key is configured.
const DefaultKey = "hospitalcore:state"

// Client is the subset of go-redis the store needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Store reads and writes one key with GET and SET. The key never expires.
type Store struct {
	client Client
	key    string
	closer func() error
}

// NewStore wraps an existing client.
func NewStore(client Client, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

// Open dials the server at url and verifies it with PING.
func Open(ctx context.Context, url, key string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	s := NewStore(client, key)
	s.closer = client.Close
	return s, nil
}

// Read returns the value stored at the key.
func (s *Store) Read(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.key, err)
	}
	return data, nil
}

// Write replaces the value stored at the key.
func (s *Store) Write(ctx context.Context, doc []byte) error {
	if err := s.client.Set(ctx, s.key, doc, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.key, err)
	}
	return nil
}

// Driver implements domain.DocumentStore.
func (s *Store) Driver() string { return "redis" }

// Key returns the key the document lives under.
func (s *Store) Key() string { return s.key }

// Close closes a client opened by Open. Wrapped clients are left alone.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
