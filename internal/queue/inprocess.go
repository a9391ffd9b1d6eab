package queue

import (
	"context"
	"sync"
)

const inProcessCapacity = 256

// InProcess is a bounded-channel queue for single-process deployments. It
// buffers bursts up to its capacity (duplicate jobs are not merged); beyond that, Enqueue
// blocks until a slot frees up or ctx is done.
type InProcess struct {
	jobs chan SyncJob

	closeOnce sync.Once
	closed    chan struct{}
}

func NewInProcess() *InProcess {
	return &InProcess{
		jobs:   make(chan SyncJob, inProcessCapacity),
		closed: make(chan struct{}),
	}
}

func (q *InProcess) Enqueue(ctx context.Context, job SyncJob) error {
	select {
	case <-q.closed:
		return ErrClosed
	default:
	}
	select {
	case q.jobs <- job:
		return nil
	case <-q.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *InProcess) Dequeue(ctx context.Context) (SyncJob, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-q.closed:
		return SyncJob{}, ErrClosed
	case <-ctx.Done():
		return SyncJob{}, ctx.Err()
	}
}

func (q *InProcess) Close() error {
	q.closeOnce.Do(func() { close(q.closed) })
	return nil
}
