package binding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"notionmirror/internal/config"
	"notionmirror/internal/notion"
)

type fakeClient struct {
	dataSources map[string][]notion.DataSourceInfo
}

func (f *fakeClient) ListDataSources(_ context.Context, databaseID string) ([]notion.DataSourceInfo, error) {
	return f.dataSources[databaseID], nil
}

func TestBuild_IndexesByDatabaseAndDataSource(t *testing.T) {
	client := &fakeClient{
		dataSources: map[string][]notion.DataSourceInfo{
			"db1": {{ID: "ds1", Name: "Main"}},
		},
	}
	databases := map[string]config.DatabaseConfig{
		"tasks": {
			ID:      "db1",
			Storage: []config.StorageConfig{{Type: "file", Settings: map[string]any{"root": t.TempDir()}}},
		},
	}

	table, err := Build(context.Background(), client, databases)
	require.NoError(t, err)

	byDB, ok := table.ByDatabaseID("db1")
	require.True(t, ok)
	assert.Equal(t, "tasks", byDB.Name)

	byDS, ok := table.ByDataSourceID("ds1")
	require.True(t, ok)
	assert.Same(t, byDB, byDS)

	assert.Len(t, table.All(), 1)
}

func TestBuild_NoDataSourcesFails(t *testing.T) {
	client := &fakeClient{dataSources: map[string][]notion.DataSourceInfo{}}
	databases := map[string]config.DatabaseConfig{
		"tasks": {ID: "db1", Storage: []config.StorageConfig{{Type: "file"}}},
	}

	_, err := Build(context.Background(), client, databases)
	assert.Error(t, err)
}

func TestBuild_BadBackendFails(t *testing.T) {
	client := &fakeClient{
		dataSources: map[string][]notion.DataSourceInfo{"db1": {{ID: "ds1"}}},
	}
	databases := map[string]config.DatabaseConfig{
		"tasks": {ID: "db1", Storage: []config.StorageConfig{{Type: "nope"}}},
	}

	_, err := Build(context.Background(), client, databases)
	assert.Error(t, err)
}
