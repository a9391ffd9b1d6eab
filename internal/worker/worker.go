// Package worker is the Worker component (spec §4.6): a single
// long-running loop that dequeues one SyncJob at a time, processes it, and
// requeues failures no earlier than 10 seconds later.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"notionmirror/internal/binding"
	"notionmirror/internal/blob"
	"notionmirror/internal/notion"
	"notionmirror/internal/queue"
	"notionmirror/internal/render"
)

const (
	maxBlockDepth = 3
	requeueDelay  = 10 * time.Second
	pollInterval  = 200 * time.Millisecond
)

// UpstreamClient is the subset of notion.Client the worker needs.
type UpstreamClient interface {
	GetPageParent(ctx context.Context, pageID string) (notion.ParentRef, error)
	GetPageMetadata(ctx context.Context, pageID string) (notion.PageMetadata, error)
	FetchBlocks(ctx context.Context, rootID string, maxDepth int) ([]notion.Block, error)
	QueryDataSourcePageIds(ctx context.Context, dataSourceID string) ([]string, error)
}

// BindingTable is the subset of binding.Table the worker needs.
type BindingTable interface {
	ByDatabaseID(id string) (*binding.Binding, bool)
	ByDataSourceID(id string) (*binding.Binding, bool)
}

// FailureSink observes every job-processing failure, independent of the
// worker's own requeue-after-10s behavior — the dead-letter ledger
// subscribes through this so requeue semantics stay unchanged. Reset clears
// whatever failure count the sink keeps for a job identity once that job
// succeeds, so a page that recovers on its own doesn't carry a stale streak
// into its next failure.
type FailureSink interface {
	RecordFailure(ctx context.Context, job queue.SyncJob, cause error)
	Reset(job queue.SyncJob)
}

type noopSink struct{}

func (noopSink) RecordFailure(context.Context, queue.SyncJob, error) {}
func (noopSink) Reset(queue.SyncJob)                                 {}

// Worker processes at most one job at a time.
type Worker struct {
	queue    queue.Queue
	upstream UpstreamClient
	bindings BindingTable
	sink     FailureSink
}

func New(q queue.Queue, upstream UpstreamClient, bindings BindingTable) *Worker {
	return &Worker{
		queue:    q,
		upstream: upstream,
		bindings: bindings,
		sink:     noopSink{},
	}
}

// WithFailureSink attaches an observer notified on every failed job, used
// by the dead-letter ledger to track consecutive failures.
func (w *Worker) WithFailureSink(sink FailureSink) *Worker {
	w.sink = sink
	return w
}

// Run processes jobs until ctx is cancelled or the queue closes.
func (w *Worker) Run(ctx context.Context) error {
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			return err
		}

		if procErr := w.process(ctx, job); procErr != nil {
			slog.ErrorContext(ctx, "sync job failed", "kind", job.Kind, "error", procErr)
			w.sink.RecordFailure(ctx, job, procErr)
			w.requeueAfter(job, requeueDelay)
		} else {
			w.sink.Reset(job)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// requeueAfter schedules a retry on a detached timer so the main loop never
// blocks waiting for the delay to elapse.
func (w *Worker) requeueAfter(job queue.SyncJob, delay time.Duration) {
	go func() {
		time.Sleep(delay)
		if err := w.queue.Enqueue(context.Background(), job); err != nil {
			slog.Error("requeue failed", "kind", job.Kind, "error", err)
		}
	}()
}

func (w *Worker) process(ctx context.Context, job queue.SyncJob) error {
	switch job.Kind {
	case queue.SyncPageByID:
		return w.processSyncPageByID(ctx, job)
	case queue.SyncPage:
		return w.processSyncPage(ctx, job)
	case queue.ScanDataSource:
		return w.processScanDataSource(ctx, job)
	default:
		return fmt.Errorf("worker: unknown job kind %q", job.Kind)
	}
}

// processSyncPageByID resolves a page's parent to a binding, by
// data_source_id first and database_id second (spec §4.7 order). A page
// with no matching binding is dropped silently, not retried.
func (w *Worker) processSyncPageByID(ctx context.Context, job queue.SyncJob) error {
	parent, err := w.upstream.GetPageParent(ctx, job.PageID)
	if err != nil {
		return fmt.Errorf("resolving parent of %s: %w", job.PageID, err)
	}

	b, ok := w.bindings.ByDataSourceID(parent.DataSourceID)
	if !ok {
		b, ok = w.bindings.ByDatabaseID(parent.DatabaseID)
	}
	if !ok {
		slog.InfoContext(ctx, "dropping sync job: no matching binding", "page_id", job.PageID)
		return nil
	}

	return w.syncPage(ctx, b, job.PageID)
}

func (w *Worker) processSyncPage(ctx context.Context, job queue.SyncJob) error {
	var b *binding.Binding
	var ok bool
	if job.DataSourceID != "" {
		b, ok = w.bindings.ByDataSourceID(job.DataSourceID)
	}
	if !ok && job.DatabaseID != "" {
		b, ok = w.bindings.ByDatabaseID(job.DatabaseID)
	}
	if !ok {
		slog.InfoContext(ctx, "dropping sync job: no matching binding", "page_id", job.PageID)
		return nil
	}
	return w.syncPage(ctx, b, job.PageID)
}

func (w *Worker) syncPage(ctx context.Context, b *binding.Binding, pageID string) error {
	meta, err := w.upstream.GetPageMetadata(ctx, pageID)
	if err != nil {
		return fmt.Errorf("fetching metadata for %s: %w", pageID, err)
	}

	blocks, err := w.upstream.FetchBlocks(ctx, pageID, maxBlockDepth)
	if err != nil {
		return fmt.Errorf("fetching blocks for %s: %w", pageID, err)
	}

	rendered := render.Render(meta, blocks, b.PropertyMap, b.Includes)

	path := fmt.Sprintf("pages/%s.md", pageID)
	if err := b.Store.Write(ctx, path, []byte(rendered.Markdown)); err != nil {
		return fmt.Errorf("writing page %s: %w", pageID, err)
	}

	if len(rendered.Blobs) > 0 {
		syncer := blob.NewSyncer(b.Store)
		if err := syncer.Sync(ctx, rendered.Blobs); err != nil {
			return fmt.Errorf("syncing blobs for %s: %w", pageID, err)
		}
	}

	return nil
}

func (w *Worker) processScanDataSource(ctx context.Context, job queue.SyncJob) error {
	ids, err := w.upstream.QueryDataSourcePageIds(ctx, job.DataSourceID)
	if err != nil {
		return fmt.Errorf("scanning data source %s: %w", job.DataSourceID, err)
	}

	for _, id := range ids {
		enqueued := queue.SyncJob{Kind: queue.SyncPage, PageID: id, DataSourceID: job.DataSourceID}
		if err := w.queue.Enqueue(ctx, enqueued); err != nil {
			return fmt.Errorf("enqueueing page %s from scan: %w", id, err)
		}
	}
	return nil
}
