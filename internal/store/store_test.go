package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"notionmirror/internal/config"
)

func TestNew_FileBackend(t *testing.T) {
	dir := t.TempDir()
	s, err := New(context.Background(), config.StorageConfig{
		Type:     "file",
		Settings: map[string]any{"root": dir},
	})
	require.NoError(t, err)

	err = s.Write(context.Background(), "pages/p1.md", []byte("hello"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "pages", "p1.md"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Type: "ftp"})
	assert.Error(t, err)
}

func TestNew_S3Backend_MissingBucket(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Type: "s3"})
	assert.Error(t, err)
}
