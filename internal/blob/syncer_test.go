package blob

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"notionmirror/internal/render"
)

type memStore struct {
	writes map[string][]byte
}

func newMemStore() *memStore { return &memStore{writes: map[string][]byte{}} }

func (m *memStore) Write(_ context.Context, path string, data []byte) error {
	m.writes[path] = data
	return nil
}

func TestSyncer_Sync_DedupesByPath(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	store := newMemStore()
	s := NewSyncer(store)

	blobs := []render.BlobRef{
		{Path: "blobs/a.png", URL: srv.URL},
		{Path: "blobs/a.png", URL: srv.URL},
	}

	err := s.Sync(context.Background(), blobs)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []byte("payload"), store.writes["blobs/a.png"])
}

func TestSyncer_Sync_NonSuccessStatusFailsPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewSyncer(newMemStore())
	err := s.Sync(context.Background(), []render.BlobRef{{Path: "blobs/a.png", URL: srv.URL}})
	assert.Error(t, err)
}

func TestSyncer_Sync_EmptyListMakesNoCalls(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	s := NewSyncer(newMemStore())
	err := s.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}
