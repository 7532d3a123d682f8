package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shoptalk/shoptalk/internal/ingest"
	"github.com/shoptalk/shoptalk/internal/queue"
)

type AdminHandler struct {
	queueClient *queue.Client
	pipeline    *ingest.Pipeline
}

func NewAdminHandler(queueClient *queue.Client, pipeline *ingest.Pipeline) *AdminHandler {
	return &AdminHandler{queueClient: queueClient, pipeline: pipeline}
}

// Ingest triggers an explicit ingestion run: POST /admin/ingest. Runs on the
// worker when the queue is available, otherwise in-process off the request.
func (h *AdminHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	if h.queueClient != nil {
		if err := h.queueClient.EnqueueIngestRun(queue.IngestRunPayload{Trigger: "admin"}); err == nil {
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
			return
		}
		slog.Warn("could not enqueue ingestion, running in-process")
	}

	go func() {
		if _, err := h.pipeline.Run(context.Background()); err != nil {
			slog.Error("in-process ingestion failed", "error", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}
