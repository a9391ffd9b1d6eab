package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"notionmirror/internal/binding"
	"notionmirror/internal/notion"
	"notionmirror/internal/queue"
)

const testSecret = "shh"

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

type fakeEnqueuer struct {
	jobs []queue.SyncJob
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, job queue.SyncJob) error {
	f.jobs = append(f.jobs, job)
	return nil
}

type staticTable struct {
	byDB map[string]*binding.Binding
	byDS map[string]*binding.Binding
}

func (t staticTable) ByDatabaseID(id string) (*binding.Binding, bool) {
	b, ok := t.byDB[id]
	return b, ok
}

func (t staticTable) ByDataSourceID(id string) (*binding.Binding, bool) {
	b, ok := t.byDS[id]
	return b, ok
}

func post(t *testing.T, in *Ingress, body string, withSignature bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if withSignature {
		req.Header.Set("X-Notion-Signature", sign(body))
	}
	rec := httptest.NewRecorder()
	in.ServeHTTP(rec, req)
	return rec
}

func TestIngress_PageEvent_EnqueuesSyncPageByID(t *testing.T) {
	enq := &fakeEnqueuer{}
	in := NewIngress(testSecret, 300*time.Second, enq, staticTable{})

	rec := post(t, in, `{"page_id":"pX"}`, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, enq.jobs, 1)
	assert.Equal(t, queue.SyncJob{Kind: queue.SyncPageByID, PageID: "pX"}, enq.jobs[0])
}

func TestIngress_UnknownDatabase_NoEnqueue(t *testing.T) {
	enq := &fakeEnqueuer{}
	in := NewIngress(testSecret, 300*time.Second, enq, staticTable{byDB: map[string]*binding.Binding{}})

	rec := post(t, in, `{"database_id":"unknown"}`, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, enq.jobs)
}

func TestIngress_VerificationHandshake(t *testing.T) {
	enq := &fakeEnqueuer{}
	in := NewIngress(testSecret, 300*time.Second, enq, staticTable{})

	rec := post(t, in, `{"verification_token":"abc"}`, false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Empty(t, enq.jobs)
}

func TestIngress_MissingSignature_Returns401(t *testing.T) {
	enq := &fakeEnqueuer{}
	in := NewIngress(testSecret, 300*time.Second, enq, staticTable{})

	rec := post(t, in, `{"page_id":"pX"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIngress_MalformedJSON_Returns400(t *testing.T) {
	enq := &fakeEnqueuer{}
	in := NewIngress(testSecret, 300*time.Second, enq, staticTable{})

	rec := post(t, in, `not json`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngress_StaleTimestamp_DropsSilently(t *testing.T) {
	enq := &fakeEnqueuer{}
	in := NewIngress(testSecret, time.Second, enq, staticTable{})

	body := `{"page_id":"pX","timestamp":"2000-01-01T00:00:00Z"}`
	rec := post(t, in, body, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, enq.jobs)
}

func TestIngress_DataSourceEvent_MatchesBinding(t *testing.T) {
	enq := &fakeEnqueuer{}
	b := &binding.Binding{DatabaseID: "db1"}
	in := NewIngress(testSecret, 300*time.Second, enq, staticTable{byDS: map[string]*binding.Binding{"ds1": b}})

	rec := post(t, in, `{"data_source_id":"ds1"}`, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, enq.jobs, 1)
	assert.Equal(t, queue.ScanDataSource, enq.jobs[0].Kind)
	assert.Equal(t, "ds1", enq.jobs[0].DataSourceID)
}

func TestIngress_DatabaseEvent_EnqueuesPerDataSource(t *testing.T) {
	enq := &fakeEnqueuer{}
	b := &binding.Binding{
		DatabaseID:  "db1",
		DataSources: []notion.DataSourceInfo{{ID: "ds1"}, {ID: "ds2"}},
	}
	in := NewIngress(testSecret, 300*time.Second, enq, staticTable{byDB: map[string]*binding.Binding{"db1": b}})

	rec := post(t, in, `{"database_id":"db1"}`, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, enq.jobs, 2)
	for _, job := range enq.jobs {
		assert.Equal(t, queue.ScanDataSource, job.Kind)
	}
}

func TestIngress_NoRecognizableTarget_Returns400(t *testing.T) {
	enq := &fakeEnqueuer{}
	in := NewIngress(testSecret, 300*time.Second, enq, staticTable{})

	rec := post(t, in, `{}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
