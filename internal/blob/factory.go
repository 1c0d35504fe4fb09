package blob

import (
	"context"
	"fmt"

	memorystore "hospitalcore/internal/infra/blob/memory"
)

// Config selects and parameterizes a blob backend.
type Config struct {
	Driver string
	FSRoot string
	S3     S3Config
}

// Open selects a blob.Store implementation from cfg. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewMemory returns a process-local store. Contents are lost on exit, so the
// memory driver only suits tests and throwaway exports.
func NewMemory() Store { return memorystore.New() }
