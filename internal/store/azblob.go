package store

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// azblobStore writes blobs to an Azure Blob Storage container, authenticated
// via a connection string (matching the rest of the backend's shared-key
// credential convention).
type azblobStore struct {
	client    *azblob.Client
	container string
	prefix    string
}

func newAzblobStore(settings map[string]string) (*azblobStore, error) {
	container := settings["container"]
	if container == "" {
		return nil, fmt.Errorf("azblob store: missing container setting")
	}
	connStr := settings["connection_string"]
	if connStr == "" {
		return nil, fmt.Errorf("azblob store: missing connection_string setting")
	}

	client, err := azblob.NewClientFromConnectionString(connStr, nil)
	if err != nil {
		return nil, fmt.Errorf("azblob store: new client: %w", err)
	}

	return &azblobStore{
		client:    client,
		container: container,
		prefix:    settings["prefix"],
	}, nil
}

func (a *azblobStore) Write(ctx context.Context, path string, data []byte) error {
	blobName := path
	if a.prefix != "" {
		blobName = a.prefix + "/" + path
	}
	_, err := a.client.UploadBuffer(ctx, a.container, blobName, data, nil)
	if err != nil {
		return fmt.Errorf("azblob store: upload %s: %w", blobName, err)
	}
	return nil
}
