// Package rescan is the PeriodicRescanner: a background task that
// periodically enqueues a ScanDataSource job for every configured
// (binding, dataSource) pair.
package rescan

import (
	"context"
	"log/slog"
	"time"

	"notionmirror/internal/binding"
	"notionmirror/internal/queue"
)

const minInterval = time.Second

// Enqueuer is the subset of queue.Queue a rescan tick needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.SyncJob) error
}

// Rescanner ticks on a fixed interval, enqueueing scans without waiting for
// the prior tick's jobs to finish processing.
type Rescanner struct {
	interval time.Duration
	queue    Enqueuer
	bindings []*binding.Binding
}

// New clamps interval to at least one second, per spec §4.8.
func New(interval time.Duration, q Enqueuer, bindings []*binding.Binding) *Rescanner {
	if interval < minInterval {
		interval = minInterval
	}
	return &Rescanner{interval: interval, queue: q, bindings: bindings}
}

// Run blocks until ctx is cancelled, ticking at the configured interval.
func (r *Rescanner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Rescanner) tick(ctx context.Context) {
	for _, b := range r.bindings {
		for _, ds := range b.DataSources {
			job := queue.SyncJob{Kind: queue.ScanDataSource, DataSourceID: ds.ID, DatabaseID: b.DatabaseID}
			if err := r.queue.Enqueue(ctx, job); err != nil {
				slog.ErrorContext(ctx, "rescan enqueue failed", "data_source_id", ds.ID, "error", err)
			}
		}
	}
}
