package deadletter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"notionmirror/internal/deadletter"
	"notionmirror/internal/queue"
)

func TestTracker_RecordsOnlyAfterThreshold(t *testing.T) {
	repo := newFakeRepo()
	svc := deadletter.NewService(repo, &fakePublisher{}, &fakeEnqueuer{}, testLogger())
	tracker := deadletter.NewTracker(3, svc)

	job := queue.SyncJob{Kind: queue.SyncPageByID, PageID: "p1"}
	cause := errors.New("boom")

	tracker.RecordFailure(context.Background(), job, cause)
	tracker.RecordFailure(context.Background(), job, cause)
	assert.Empty(t, repo.saved)

	tracker.RecordFailure(context.Background(), job, cause)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, "p1", repo.saved[0].PageID)
}

func TestTracker_CounterResetsAfterRecordingAndCanRetrigger(t *testing.T) {
	repo := newFakeRepo()
	svc := deadletter.NewService(repo, &fakePublisher{}, &fakeEnqueuer{}, testLogger())
	tracker := deadletter.NewTracker(2, svc)

	job := queue.SyncJob{Kind: queue.SyncPage, PageID: "p2"}
	cause := errors.New("boom")

	tracker.RecordFailure(context.Background(), job, cause)
	tracker.RecordFailure(context.Background(), job, cause)
	require.Len(t, repo.saved, 1)

	tracker.RecordFailure(context.Background(), job, cause)
	assert.Len(t, repo.saved, 1)

	tracker.RecordFailure(context.Background(), job, cause)
	assert.Len(t, repo.saved, 2)
}

func TestTracker_Reset_ClearsCounter(t *testing.T) {
	repo := newFakeRepo()
	svc := deadletter.NewService(repo, &fakePublisher{}, &fakeEnqueuer{}, testLogger())
	tracker := deadletter.NewTracker(2, svc)

	job := queue.SyncJob{Kind: queue.SyncPageByID, PageID: "p3"}
	cause := errors.New("boom")

	tracker.RecordFailure(context.Background(), job, cause)
	tracker.Reset(job)
	tracker.RecordFailure(context.Background(), job, cause)
	assert.Empty(t, repo.saved)
}

func TestTracker_TracksDistinctJobsIndependently(t *testing.T) {
	repo := newFakeRepo()
	svc := deadletter.NewService(repo, &fakePublisher{}, &fakeEnqueuer{}, testLogger())
	tracker := deadletter.NewTracker(2, svc)

	cause := errors.New("boom")
	jobA := queue.SyncJob{Kind: queue.SyncPageByID, PageID: "a"}
	jobB := queue.SyncJob{Kind: queue.SyncPageByID, PageID: "b"}

	tracker.RecordFailure(context.Background(), jobA, cause)
	tracker.RecordFailure(context.Background(), jobB, cause)
	assert.Empty(t, repo.saved)

	tracker.RecordFailure(context.Background(), jobA, cause)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, "a", repo.saved[0].PageID)
}

func TestNewTracker_DefaultsThreshold(t *testing.T) {
	repo := newFakeRepo()
	svc := deadletter.NewService(repo, &fakePublisher{}, &fakeEnqueuer{}, testLogger())
	tracker := deadletter.NewTracker(0, svc)

	job := queue.SyncJob{Kind: queue.SyncPageByID, PageID: "p1"}
	cause := errors.New("boom")
	for i := 0; i < 4; i++ {
		tracker.RecordFailure(context.Background(), job, cause)
	}
	assert.Empty(t, repo.saved)

	tracker.RecordFailure(context.Background(), job, cause)
	assert.Len(t, repo.saved, 1)
}
