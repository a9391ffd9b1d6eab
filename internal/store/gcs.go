package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// gcsStore writes blobs as objects in a Google Cloud Storage bucket.
type gcsStore struct {
	client *storage.Client
	bucket string
	prefix string
}

func newGCSStore(ctx context.Context, settings map[string]string) (*gcsStore, error) {
	bucket := settings["bucket"]
	if bucket == "" {
		return nil, fmt.Errorf("gcs store: missing bucket setting")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs store: new client: %w", err)
	}

	return &gcsStore{
		client: client,
		bucket: bucket,
		prefix: settings["prefix"],
	}, nil
}

func (g *gcsStore) Write(ctx context.Context, path string, data []byte) error {
	object := path
	if g.prefix != "" {
		object = g.prefix + "/" + path
	}

	w := g.client.Bucket(g.bucket).Object(object).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("gcs store: write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs store: close %s: %w", object, err)
	}
	return nil
}
