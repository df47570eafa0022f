package dispatch

import (
	"context"
	"encoding/json"
)

// Job is one unit of background work handed to the queue. ID is derived from
// the originating event so redelivered events produce the same job and the
// queue can deduplicate.
type Job struct {
	ID      string          `json:"id"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// JobQueue is the background-work sink the command listener enqueues into.
// Enqueue must be idempotent on Job.ID.
type JobQueue interface {
	Enqueue(ctx context.Context, job Job) error
}
