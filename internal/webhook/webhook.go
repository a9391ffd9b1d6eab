// Package webhook is the WebhookIngress HTTP handler: authenticates,
// dedupes-by-freshness, classifies, and dispatches an incoming upstream
// event as a SyncJob.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"notionmirror/internal/binding"
	"notionmirror/internal/queue"
)

// Enqueuer is the subset of queue.Queue the ingress needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.SyncJob) error
}

// BindingTable is the subset of binding.Table the ingress needs.
type BindingTable interface {
	ByDatabaseID(id string) (*binding.Binding, bool)
	ByDataSourceID(id string) (*binding.Binding, bool)
}

type event struct {
	VerificationToken string    `json:"verification_token"`
	Timestamp         string    `json:"timestamp"`
	PageID            string    `json:"page_id"`
	DataSourceID      string    `json:"data_source_id"`
	DatabaseID        string    `json:"database_id"`
	Data              eventData `json:"data"`
}

type eventData struct {
	ID           string    `json:"id"`
	DataSourceID string    `json:"data_source_id"`
	DatabaseID   string    `json:"database_id"`
	Parent       parentRef `json:"parent"`
}

type parentRef struct {
	DataSourceID string `json:"data_source_id"`
	DatabaseID   string `json:"database_id"`
}

// Ingress is the HTTP handler registered at POST /webhook.
type Ingress struct {
	secret   string
	maxAge   time.Duration
	queue    Enqueuer
	bindings BindingTable
}

func NewIngress(secret string, maxAge time.Duration, q Enqueuer, bindings BindingTable) *Ingress {
	return &Ingress{secret: secret, maxAge: maxAge, queue: q, bindings: bindings}
}

func (in *Ingress) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var evt event
	if err := json.Unmarshal(body, &evt); err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	if evt.VerificationToken != "" {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	if in.secret != "" {
		if !verifySignature(in.secret, body, r.Header.Get("X-Notion-Signature")) {
			http.Error(w, "signature mismatch", http.StatusUnauthorized)
			return
		}
	}

	if in.maxAge > 0 && evt.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, evt.Timestamp)
		if err == nil && absDuration(time.Since(ts)) > in.maxAge {
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	ctx := r.Context()

	if pageID := firstNonEmpty(evt.PageID, evt.Data.ID); pageID != "" {
		in.enqueueOrLog(ctx, queue.SyncJob{Kind: queue.SyncPageByID, PageID: pageID})
		w.WriteHeader(http.StatusOK)
		return
	}

	if dsID := firstNonEmpty(evt.DataSourceID, evt.Data.DataSourceID, evt.Data.Parent.DataSourceID); dsID != "" {
		b, ok := in.bindings.ByDataSourceID(dsID)
		if !ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		in.enqueueOrLog(ctx, queue.SyncJob{Kind: queue.ScanDataSource, DataSourceID: dsID, DatabaseID: b.DatabaseID})
		w.WriteHeader(http.StatusOK)
		return
	}

	if dbID := firstNonEmpty(evt.DatabaseID, evt.Data.DatabaseID, evt.Data.Parent.DatabaseID); dbID != "" {
		b, ok := in.bindings.ByDatabaseID(dbID)
		if !ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		for _, ds := range b.DataSources {
			in.enqueueOrLog(ctx, queue.SyncJob{Kind: queue.ScanDataSource, DataSourceID: ds.ID, DatabaseID: b.DatabaseID})
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Error(w, "no recognizable event target", http.StatusBadRequest)
}

func (in *Ingress) enqueueOrLog(ctx context.Context, job queue.SyncJob) {
	if err := in.queue.Enqueue(ctx, job); err != nil {
		slog.Error("webhook enqueue failed", "kind", job.Kind, "error", err)
	}
}

func verifySignature(secret string, body []byte, header string) bool {
	if header == "" {
		return false
	}
	header = strings.TrimPrefix(header, "sha256=")
	expected, err := hex.DecodeString(header)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	computed := mac.Sum(nil)
	return hmac.Equal(computed, expected)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
