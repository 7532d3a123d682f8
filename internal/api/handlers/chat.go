package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/shoptalk/shoptalk/internal/chat"
	"github.com/shoptalk/shoptalk/internal/speech/tts"
)

type ChatHandler struct {
	svc          *chat.Service
	ttsSvc       tts.Provider
	responsesDir string
}

func NewChatHandler(svc *chat.Service, ttsSvc tts.Provider, responsesDir string) *ChatHandler {
	return &ChatHandler{svc: svc, ttsSvc: ttsSvc, responsesDir: responsesDir}
}

// AskProduct answers a product question: GET /ask_product?query=&session_id=.
// A missing session_id starts a new server-generated session.
func (h *ChatHandler) AskProduct(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeBadRequest(w, "query required")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	answer, err := h.svc.Answer(r.Context(), query, sessionID)
	if answer == nil {
		writeError(w, r, err)
		return
	}
	// Generation failures already carry the user-safe fallback text.
	writeJSON(w, http.StatusOK, answer)
}

type chatQueryRequest struct {
	Query     string `json:"query" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
	Voice     string `json:"voice"`
}

type chatQueryResponse struct {
	RawText   string `json:"raw_text"`
	AudioPath string `json:"audio_path,omitempty"`
}

// Query answers a text question and renders the reply to speech, saving the
// MP3 under the responses dir served at /static.
func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req chatQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	answer, err := h.svc.Answer(r.Context(), req.Query, req.SessionID)
	if answer == nil {
		writeError(w, r, err)
		return
	}

	resp := chatQueryResponse{RawText: answer.Text}

	if h.ttsSvc != nil && answer.Text != "" {
		result, err := h.ttsSvc.Synthesize(r.Context(), tts.SynthesisRequest{
			Input: answer.Text,
			Voice: req.Voice,
		})
		if err == nil {
			if path, saveErr := h.saveAudio(result.Audio); saveErr == nil {
				resp.AudioPath = path
			}
		}
		// TTS failure degrades to text-only: the answer is still returned.
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) saveAudio(audio []byte) (string, error) {
	if err := os.MkdirAll(h.responsesDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("speech_%s.mp3", uuid.NewString())
	if err := os.WriteFile(filepath.Join(h.responsesDir, name), audio, 0o644); err != nil {
		return "", err
	}
	return "/static/" + name, nil
}
