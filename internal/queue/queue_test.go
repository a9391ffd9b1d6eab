package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInProcess_EnqueueDequeue(t *testing.T) {
	q := NewInProcess()
	defer q.Close()

	job := SyncJob{Kind: SyncPageByID, PageID: "p1"}
	require.NoError(t, q.Enqueue(context.Background(), job))

	got, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, job, got)
}

func TestInProcess_DequeueAfterClose(t *testing.T) {
	q := NewInProcess()
	q.Close()

	err := q.Enqueue(context.Background(), SyncJob{Kind: ScanDataSource})
	assert.ErrorIs(t, err, ErrClosed)

	_, err = q.Dequeue(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestInProcess_DequeueRespectsContextCancellation(t *testing.T) {
	q := NewInProcess()
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSyncJob_EncodeDecodeRoundTrip(t *testing.T) {
	jobs := []SyncJob{
		{Kind: SyncPageByID, PageID: "p1"},
		{Kind: SyncPage, PageID: "p2", DatabaseID: "db1"},
		{Kind: ScanDataSource, DataSourceID: "ds1"},
	}

	for _, job := range jobs {
		data, err := job.Encode()
		require.NoError(t, err)

		decoded, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, job, decoded)
	}
}
