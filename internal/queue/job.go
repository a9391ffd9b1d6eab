// Package queue is the JobQueue abstraction: enqueue/dequeue over a tagged
// SyncJob, with an in-process bounded-channel variant and an external
// Redis-backed variant.
package queue

import "encoding/json"

// JobKind tags a SyncJob's payload.
type JobKind string

const (
	SyncPageByID   JobKind = "sync_page_by_id"
	SyncPage       JobKind = "sync_page"
	ScanDataSource JobKind = "scan_data_source"
)

// SyncJob is a tagged union of the three work items the worker processes.
// Only the fields relevant to Kind are populated.
type SyncJob struct {
	Kind JobKind `json:"kind"`

	PageID       string `json:"page_id,omitempty"`
	DatabaseID   string `json:"database_id,omitempty"`
	DataSourceID string `json:"data_source_id,omitempty"`
}

// Encode/Decode round-trip a SyncJob across the external broker path, where
// jobs cross process boundaries as JSON.
func (j SyncJob) Encode() ([]byte, error) {
	return json.Marshal(j)
}

func Decode(data []byte) (SyncJob, error) {
	var j SyncJob
	err := json.Unmarshal(data, &j)
	return j, err
}
