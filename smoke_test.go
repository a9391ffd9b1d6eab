package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"notionmirror/internal/config"
	"notionmirror/internal/notion"
	"notionmirror/internal/testutils"
)

// fakeNotionServer answers just enough of the Notion API for a single
// database binding to build at startup.
func fakeNotionServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/databases/db1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data_sources": []map[string]string{{"id": "ds1", "name": "Tasks"}},
		})
	})
	return httptest.NewServer(mux)
}

func TestSmoke_Startup(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping smoke test in short mode")
	}

	suite := testutils.NewIntegrationSuite(t)
	suite.Setup()
	defer suite.Teardown()

	notionSrv := fakeNotionServer()
	defer notionSrv.Close()

	cfg := suite.GetAppConfig()
	cfg.Notion.APIKey = "test-key"
	cfg.Webhook.Host = "127.0.0.1"
	cfg.Webhook.Port = 18081
	cfg.Webhook.MaxAgeSeconds = 300
	cfg.Queue.Name = "notionmirror-smoke"
	cfg.Database = map[string]config.DatabaseConfig{
		"tasks": {
			ID: "db1",
			Storage: []config.StorageConfig{
				{Type: "file", Settings: map[string]any{"root": t.TempDir()}},
			},
		},
	}

	logger := suite.Logger()
	upstream := notion.NewClientWithBaseURL(cfg.Notion.APIKey, notionSrv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := run(ctx, cfg, upstream, logger)
		if err != nil && err != context.Canceled {
			t.Logf("app run exited: %v", err)
		}
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:18081/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 250*time.Millisecond)
}
