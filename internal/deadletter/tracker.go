package deadletter

import (
	"context"
	"sync"

	"notionmirror/internal/queue"
)

// Tracker implements worker.FailureSink: it counts consecutive failures per
// job identity (kind plus page id, or kind plus data source and database
// ids) and records a dead letter once the configured threshold is
// reached, then resets the counter. A successful sync (observed via Reset)
// clears the count, so only a genuinely stuck page accumulates a record.
type Tracker struct {
	threshold int
	service   *Service

	mu     sync.Mutex
	counts map[string]int
}

func NewTracker(threshold int, service *Service) *Tracker {
	if threshold <= 0 {
		threshold = 5
	}
	return &Tracker{threshold: threshold, service: service, counts: map[string]int{}}
}

func (t *Tracker) key(job queue.SyncJob) string {
	if job.PageID != "" {
		return string(job.Kind) + ":" + job.PageID
	}
	return string(job.Kind) + ":" + job.DataSourceID + ":" + job.DatabaseID
}

func (t *Tracker) RecordFailure(ctx context.Context, job queue.SyncJob, cause error) {
	t.mu.Lock()
	key := t.key(job)
	t.counts[key]++
	reached := t.counts[key] >= t.threshold
	if reached {
		delete(t.counts, key)
	}
	t.mu.Unlock()

	if reached {
		_ = t.service.Record(ctx, job, cause)
	}
}

// Reset clears the failure count for a job identity, called after it
// succeeds.
func (t *Tracker) Reset(job queue.SyncJob) {
	t.mu.Lock()
	delete(t.counts, t.key(job))
	t.mu.Unlock()
}
