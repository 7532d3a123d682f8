package history

import (
	"context"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a session transcript. Immutable once written.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Store keeps per-session transcripts. History returns turns in ascending
// timestamp order and an empty slice for unknown sessions, never an error
// for absence. Append must surface storage failures to the caller.
type Store interface {
	Append(ctx context.Context, sessionID string, turn Turn) error
	History(ctx context.Context, sessionID string) ([]Turn, error)
	Prune(ctx context.Context, maxAge time.Duration) (int, error)
}
