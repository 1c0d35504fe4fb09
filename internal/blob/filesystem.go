package blob

import (
	"hospitalcore/internal/infra/blob/fs"
)

// NewFilesystem constructs a filesystem-backed blob.Store rooted at the provided path.
func NewFilesystem(root string) (Store, error) {
	st, err := fs.New(root)
	if err != nil {
		return nil, err
	}
	return st, nil
}
