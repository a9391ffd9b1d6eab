package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notionmirror/internal/config"
)

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("NOTION_API_KEY", "test-key")
	t.Setenv("WEBHOOK_HOST", "127.0.0.1")

	dir := t.TempDir()
	toml := "[database.docs]\nid = \"db-1\"\n[[database.docs.storage]]\ntype = \"file\"\nroot = \"" + dir + "\"\n"
	path := dir + "/config.toml"
	require.NoError(t, os.WriteFile(path, []byte(toml), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test-key", cfg.Notion.APIKey)
	assert.Equal(t, "127.0.0.1", cfg.Webhook.Host)
	assert.Equal(t, "db-1", cfg.Database["docs"].ID)
	assert.Equal(t, "file", cfg.Database["docs"].Storage[0].Type)
}

func TestLoadConfig_DoubleUnderscoreDelimiter(t *testing.T) {
	t.Setenv("NOTION__API_KEY", "dunder-key")

	dir := t.TempDir()
	toml := "[database.docs]\nid = \"db-1\"\n[[database.docs.storage]]\ntype = \"file\"\nroot = \"" + dir + "\"\n"
	path := dir + "/config.toml"
	require.NoError(t, os.WriteFile(path, []byte(toml), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dunder-key", cfg.Notion.APIKey)
}

func TestLoadConfig_MissingDatabase(t *testing.T) {
	t.Setenv("NOTION_API_KEY", "test-key")

	_, err := config.Load()
	assert.ErrorIs(t, err, config.ErrMissingRequired)
}

func TestLoadConfig_YAML(t *testing.T) {
	t.Setenv("NOTION_API_KEY", "test-key")

	dir := t.TempDir()
	y := "database:\n  docs:\n    id: db-1\n    storage:\n      - type: file\n        root: " + dir + "\n"
	path := dir + "/config.yaml"
	require.NoError(t, os.WriteFile(path, []byte(y), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "db-1", cfg.Database["docs"].ID)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("NOTION_API_KEY", "test-key")

	dir := t.TempDir()
	toml := "[database.docs]\nid = \"db-1\"\n[[database.docs.storage]]\ntype = \"file\"\nroot = \"" + dir + "\"\n"
	path := dir + "/config.toml"
	require.NoError(t, os.WriteFile(path, []byte(toml), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Webhook.Host)
	assert.Equal(t, 3000, cfg.Webhook.Port)
	assert.Equal(t, int64(300), cfg.Webhook.MaxAgeSeconds)
	assert.Equal(t, 5, cfg.Sync.DeadLetterThreshold)
	assert.Equal(t, "notionmirror", cfg.Queue.Name)
}
