package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const reconnectBackoff = 2 * time.Second

// Redis is the external broker variant, backed by a single Redis list per
// queue name. It accepts at-most-once delivery for jobs popped but never
// acknowledged (a process crash between BLPop and processing loses the
// job) — there is no in-process cancellation-safe way to peek-then-commit
// against a plain list broker.
type Redis struct {
	client *redis.Client
	key    string
}

func NewRedis(url, name string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("queue: parsing redis url: %w", err)
	}
	return &Redis{
		client: redis.NewClient(opts),
		key:    name + ":sync-jobs",
	}, nil
}

func (q *Redis) Enqueue(ctx context.Context, job SyncJob) error {
	data, err := job.Encode()
	if err != nil {
		return fmt.Errorf("queue: encoding job: %w", err)
	}
	if err := q.client.RPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("queue: rpush: %w", err)
	}
	return nil
}

// Dequeue blocks on BLPop, reconnecting with a fixed backoff on transport
// errors rather than surfacing every transient network blip to the worker.
func (q *Redis) Dequeue(ctx context.Context) (SyncJob, error) {
	for {
		result, err := q.client.BLPop(ctx, 0, q.key).Result()
		if err != nil {
			if ctx.Err() != nil {
				return SyncJob{}, ctx.Err()
			}
			select {
			case <-time.After(reconnectBackoff):
				continue
			case <-ctx.Done():
				return SyncJob{}, ctx.Err()
			}
		}
		if len(result) != 2 {
			continue
		}
		return Decode([]byte(result[1]))
	}
}

func (q *Redis) Close() error {
	return q.client.Close()
}
