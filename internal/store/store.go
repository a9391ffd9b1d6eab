// Package store implements ObjectStoreAdapter: the scheme-selected binary
// backends a DatabaseBinding writes blobs and rendered pages to.
package store

import (
	"context"
	"fmt"

	"notionmirror/internal/config"
)

// Store is the write surface every backend implements. Paths are always
// forward-slash relative (e.g. "pages/p1.md", "blobs/b1.png").
type Store interface {
	Write(ctx context.Context, path string, data []byte) error
}

// New selects and constructs a backend from a StorageConfig's `type` field.
// An unrecognized scheme is a startup configuration error.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	settings := config.CoerceSettings(cfg.Settings)
	switch cfg.Type {
	case "file":
		return newFileStore(settings)
	case "s3":
		return newS3Store(ctx, settings)
	case "gcs":
		return newGCSStore(ctx, settings)
	case "azblob":
		return newAzblobStore(settings)
	default:
		return nil, fmt.Errorf("store: unknown backend type %q", cfg.Type)
	}
}
