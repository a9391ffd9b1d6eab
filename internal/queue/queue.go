package queue

import (
	"context"
	"errors"
)

// ErrClosed is returned by Enqueue/Dequeue once the queue has been closed.
var ErrClosed = errors.New("queue: closed")

// Queue is the capability every variant implements: enqueue a job, dequeue
// the next one (blocking until available or ctx is done), and close.
type Queue interface {
	Enqueue(ctx context.Context, job SyncJob) error
	Dequeue(ctx context.Context) (SyncJob, error)
	Close() error
}
