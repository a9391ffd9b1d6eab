package deadletter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"notionmirror/internal/config"
	"notionmirror/internal/queue"
)

// Publisher notifies an external system (NSQ) that a dead letter exists,
// independent of the Postgres record of it.
type Publisher interface {
	Publish(topic string, body []byte) error
}

// Enqueuer is the subset of queue.Queue the ledger needs to requeue a
// manually-retried job onto the live pipeline.
type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.SyncJob) error
}

type Service struct {
	repo   Repository
	pub    Publisher
	queue  Enqueuer
	logger *slog.Logger
}

func NewService(repo Repository, pub Publisher, q Enqueuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, pub: pub, queue: q, logger: logger}
}

// Record persists a dead letter and publishes a notification. Failures to
// notify are logged but do not fail the record.
func (s *Service) Record(ctx context.Context, job queue.SyncJob, cause error) error {
	dl, err := newRecord(job, cause)
	if err != nil {
		return fmt.Errorf("building dead letter record: %w", err)
	}
	if err := s.repo.Save(ctx, dl); err != nil {
		return fmt.Errorf("saving dead letter: %w", err)
	}

	if err := s.pub.Publish(config.TopicDeadLetter, dl.Payload); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish dead letter notification", "id", dl.ID, "error", err)
	}

	return nil
}

func (s *Service) List(ctx context.Context) ([]DeadLetter, error) {
	return s.repo.List(ctx)
}

// Requeue decodes the stored job payload, pushes it back onto the live
// queue, and deletes the ledger record — publish-then-delete, so a crash
// between the two leaves the record rather than silently losing the job.
func (s *Service) Requeue(ctx context.Context, id string) error {
	dl, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("fetching dead letter %s: %w", id, err)
	}

	job, err := queue.Decode(dl.Payload)
	if err != nil {
		return fmt.Errorf("decoding dead letter payload %s: %w", id, err)
	}

	enqueueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.queue.Enqueue(enqueueCtx, job); err != nil {
		return fmt.Errorf("requeueing dead letter %s: %w", id, err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting dead letter %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "dead letter requeued", "id", id)
	return nil
}
