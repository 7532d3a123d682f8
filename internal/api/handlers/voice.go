package handlers

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/shoptalk/shoptalk/internal/chat"
	"github.com/shoptalk/shoptalk/internal/fault"
	"github.com/shoptalk/shoptalk/internal/speech/stt"
	"github.com/shoptalk/shoptalk/internal/speech/tts"
)

type VoiceHandler struct {
	svc    *chat.Service
	sttSvc stt.Provider
	ttsSvc tts.Provider
}

func NewVoiceHandler(svc *chat.Service, sttSvc stt.Provider, ttsSvc tts.Provider) *VoiceHandler {
	return &VoiceHandler{svc: svc, sttSvc: sttSvc, ttsSvc: ttsSvc}
}

// readAudio extracts and validates the uploaded audio part. Validation runs
// before any transcription attempt, and a malformed upload is the client's
// fault, never a server error.
func readAudio(r *http.Request) ([]byte, string, error) {
	if err := r.ParseMultipartForm(stt.MaxAudioSize); err != nil {
		return nil, "", fault.Wrap(fault.UnsupportedFormat, err, "malformed multipart body")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", fault.Wrap(fault.UnsupportedFormat, err, "missing audio file part")
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, stt.MaxAudioSize+1))
	if err != nil {
		return nil, "", fault.Wrap(fault.UnsupportedFormat, err, "read audio upload")
	}

	contentType := header.Header.Get("Content-Type")
	if err := stt.Validate(contentType, audio); err != nil {
		return nil, "", err
	}
	return audio, contentType, nil
}

// Transcribe converts uploaded audio to text: POST /voice/stt.
func (h *VoiceHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	audio, contentType, err := readAudio(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.sttSvc.Transcribe(r.Context(), stt.TranscriptionRequest{
		Audio:       audio,
		ContentType: contentType,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": result.Text})
}

type ttsRequest struct {
	Text  string `json:"text" validate:"required"`
	Voice string `json:"voice"`
}

// Speak converts text to audio: POST /voice/tts.
func (h *VoiceHandler) Speak(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := h.ttsSvc.Synthesize(r.Context(), tts.SynthesisRequest{
		Input: req.Text,
		Voice: req.Voice,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"audio_base64": base64.StdEncoding.EncodeToString(result.Audio),
		"format":       "mp3",
		"voice_used":   result.Voice,
		"text_length":  len(req.Text),
	})
}

type voiceChatResponse struct {
	UserQuery   string `json:"user_query"`
	AIResponse  string `json:"ai_response"`
	AudioBase64 string `json:"audio_base64,omitempty"`
	Format      string `json:"format,omitempty"`
	HasAudio    bool   `json:"has_audio"`
	VoiceUsed   string `json:"voice_used"`
	SessionID   string `json:"session_id"`
	Timestamp   string `json:"timestamp"`
}

// Chat is the full voice round-trip: STT, orchestrator, TTS.
// POST /voice/chat multipart {file}, query params session_id and voice.
func (h *VoiceHandler) Chat(w http.ResponseWriter, r *http.Request) {
	audio, contentType, err := readAudio(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = r.FormValue("session_id")
	}
	if sessionID == "" {
		sessionID = "default"
	}
	voice := r.URL.Query().Get("voice")

	transcript, err := h.sttSvc.Transcribe(r.Context(), stt.TranscriptionRequest{
		Audio:       audio,
		ContentType: contentType,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	answer, err := h.svc.Answer(r.Context(), transcript.Text, sessionID)
	if answer == nil {
		writeError(w, r, err)
		return
	}

	resp := voiceChatResponse{
		UserQuery:  transcript.Text,
		AIResponse: answer.Text,
		VoiceUsed:  tts.NormalizeVoice(voice),
		SessionID:  sessionID,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	if h.ttsSvc != nil && answer.Text != "" {
		result, ttsErr := h.ttsSvc.Synthesize(r.Context(), tts.SynthesisRequest{
			Input: answer.Text,
			Voice: voice,
		})
		if ttsErr == nil {
			resp.AudioBase64 = base64.StdEncoding.EncodeToString(result.Audio)
			resp.Format = "mp3"
			resp.HasAudio = true
			resp.VoiceUsed = result.Voice
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Voices lists the selectable TTS voices: GET /voice/voices.
func (h *VoiceHandler) Voices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"voices":  tts.Voices,
		"default": tts.DefaultVoice,
	})
}
