package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shoptalk/shoptalk/internal/history"
)

type HistoryHandler struct {
	store history.Store
}

func NewHistoryHandler(store history.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// Get returns the full transcript for a session: GET /history/{session_id}.
// Unknown sessions yield an empty list, not an error.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		writeBadRequest(w, "session_id required")
		return
	}

	turns, err := h.store.History(r.Context(), sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"history": turns})
}

type appendTurnRequest struct {
	Role      string    `json:"role" validate:"required,oneof=user assistant"`
	Text      string    `json:"text" validate:"required"`
	Timestamp time.Time `json:"timestamp"`
}

// Append records a turn manually: POST /history/{session_id}.
func (h *HistoryHandler) Append(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		writeBadRequest(w, "session_id required")
		return
	}

	var req appendTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	err := h.store.Append(r.Context(), sessionID, history.Turn{
		Role:      req.Role,
		Text:      req.Text,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "turn recorded",
	})
}
