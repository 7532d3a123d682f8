package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeIngestRun    = "ingest:run"
	TypeSessionPrune = "session:prune"
)

type IngestRunPayload struct {
	Trigger string `json:"trigger"` // "startup", "admin", "cli"
}

type SessionPrunePayload struct {
	MaxAgeSeconds int64 `json:"max_age_seconds"`
}

// NewSessionPruneTask builds the task the worker's scheduler registers for
// periodic execution.
func NewSessionPruneTask(payload SessionPrunePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal prune payload: %w", err)
	}
	return asynq.NewTask(TypeSessionPrune, data, asynq.MaxRetry(2), asynq.Timeout(5*time.Minute)), nil
}
