package core

import (
	"context"
	"fmt"

	"hospitalcore/internal/blob"
	"hospitalcore/internal/infra/persistence/blobdoc"
	"hospitalcore/internal/infra/persistence/file"
	"hospitalcore/internal/infra/persistence/memory"
	"hospitalcore/internal/infra/persistence/postgres"
	"hospitalcore/internal/infra/persistence/redis"
	"hospitalcore/internal/infra/persistence/sqlite"
	"hospitalcore/pkg/domain"
)

// StorageDriver enumerates supported document store backends.
type StorageDriver string

const (
	// StorageMemory keeps the document in process memory.
	StorageMemory StorageDriver = "memory"
	// StorageFile writes the document to a JSON file.
	StorageFile StorageDriver = "file"
	// StorageSQLite upserts the document into a sqlite table.
	StorageSQLite StorageDriver = "sqlite"
	// StoragePostgres upserts the document into a postgres JSONB table.
	StoragePostgres StorageDriver = "postgres"
	// StorageRedis stores the document under one redis key.
	StorageRedis StorageDriver = "redis"
	// StorageBlob stores the document as one object in a blob store.
	StorageBlob StorageDriver = "blob"
)

// StorageConfig parameterizes OpenDocumentStore. Empty values fall back to
// each backend's defaults.
type StorageConfig struct {
	Driver      StorageDriver
	Path        string
	AtomicWrite bool
	SQLitePath  string
	PostgresDSN string
	RedisURL    string
	RedisKey    string
	BlobKey     string
	Blob        blob.Config
}

// OpenDocumentStore selects a backend from cfg. Defaults to file when the
// driver is unset. The returned close func is never nil.
func OpenDocumentStore(ctx context.Context, cfg StorageConfig) (domain.DocumentStore, func() error, error) {
	noClose := func() error { return nil }
	driver := cfg.Driver
	if driver == "" {
		driver = StorageFile
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), noClose, nil
	case StorageFile:
		path := cfg.Path
		if path == "" {
			path = file.DefaultPath
		}
		st, err := file.NewStore(path, cfg.AtomicWrite)
		if err != nil {
			return nil, noClose, err
		}
		return st, noClose, nil
	case StorageSQLite:
		st, err := sqlite.NewStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, noClose, err
		}
		return st, st.Close, nil
	case StoragePostgres:
		st, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, noClose, err
		}
		return st, st.Close, nil
	case StorageRedis:
		st, err := redis.Open(ctx, cfg.RedisURL, cfg.RedisKey)
		if err != nil {
			return nil, noClose, err
		}
		return st, st.Close, nil
	case StorageBlob:
		blobs, err := blob.Open(ctx, cfg.Blob)
		if err != nil {
			return nil, noClose, fmt.Errorf("open blob store: %w", err)
		}
		return blobdoc.NewStore(blobs, cfg.BlobKey), noClose, nil
	default:
		return nil, noClose, fmt.Errorf("unknown storage driver %s", driver)
	}
}
