package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shoptalk/shoptalk/internal/history"
	"github.com/shoptalk/shoptalk/internal/ingest"
)

// IngestWorker runs the full ingestion pipeline off the request path.
type IngestWorker struct {
	pipeline *ingest.Pipeline
}

func NewIngestWorker(p *ingest.Pipeline) *IngestWorker {
	return &IngestWorker{pipeline: p}
}

func (w *IngestWorker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload IngestRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal ingest payload: %w", err)
	}

	slog.Info("ingestion run starting", "trigger", payload.Trigger)
	n, err := w.pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingestion run: %w", err)
	}
	slog.Info("ingestion run finished", "trigger", payload.Trigger, "documents", n)
	return nil
}

// PruneWorker evicts session turns older than the configured max age.
type PruneWorker struct {
	store history.Store
}

func NewPruneWorker(store history.Store) *PruneWorker {
	return &PruneWorker{store: store}
}

func (w *PruneWorker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload SessionPrunePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal prune payload: %w", err)
	}

	maxAge := time.Duration(payload.MaxAgeSeconds) * time.Second
	pruned, err := w.store.Prune(ctx, maxAge)
	if err != nil {
		return fmt.Errorf("prune sessions: %w", err)
	}
	slog.Info("session prune finished", "pruned_turns", pruned, "max_age", maxAge)
	return nil
}
