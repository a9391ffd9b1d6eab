// Package deadletter is the supplemental Dead-Letter Ledger: a Postgres-
// backed record of sync jobs whose consecutive failures reached a threshold, notified
// over NSQ and exposed for manual requeue over HTTP. It is purely an
// observability aid — the worker's own requeue-after-10s behavior is
// unchanged by its presence.
package deadletter

import (
	"encoding/json"
	"time"

	"notionmirror/internal/queue"
)

// DeadLetter is one job that crossed the consecutive-failure threshold.
type DeadLetter struct {
	ID        string          `json:"id"`
	JobKind   queue.JobKind   `json:"job_kind"`
	PageID    string          `json:"page_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	LastError string          `json:"last_error"`
	Retries   int             `json:"retries"`
	CreatedAt time.Time       `json:"created_at"`
}

func newRecord(job queue.SyncJob, cause error) (*DeadLetter, error) {
	payload, err := job.Encode()
	if err != nil {
		return nil, err
	}
	return &DeadLetter{
		JobKind:   job.Kind,
		PageID:    job.PageID,
		Payload:   payload,
		LastError: cause.Error(),
	}, nil
}
