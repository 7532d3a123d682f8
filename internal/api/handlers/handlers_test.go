package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoptalk/shoptalk/internal/chat"
	"github.com/shoptalk/shoptalk/internal/embedding"
	"github.com/shoptalk/shoptalk/internal/fault"
	"github.com/shoptalk/shoptalk/internal/history"
	"github.com/shoptalk/shoptalk/internal/llm"
	"github.com/shoptalk/shoptalk/internal/rag"
	"github.com/shoptalk/shoptalk/internal/speech/stt"
	"github.com/shoptalk/shoptalk/internal/speech/tts"
	"github.com/shoptalk/shoptalk/internal/vectorstore"
)

type stubGateway struct {
	reply string
	err   error
}

func (g *stubGateway) Chat(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &llm.ChatResponse{Content: g.reply}, nil
}

func (g *stubGateway) Embed(context.Context, llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	return nil, errors.New("not implemented")
}

func (g *stubGateway) Provider(string) (llm.Provider, error) {
	return nil, errors.New("not implemented")
}

func (g *stubGateway) ListModels() []llm.ModelInfo { return nil }

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type stubSTT struct {
	text   string
	err    error
	called bool
}

func (s *stubSTT) Transcribe(context.Context, stt.TranscriptionRequest) (*stt.TranscriptionResponse, error) {
	s.called = true
	if s.err != nil {
		return nil, s.err
	}
	return &stt.TranscriptionResponse{Text: s.text}, nil
}

func (s *stubSTT) Name() string { return "stub" }

type stubTTS struct {
	err error
}

func (s *stubTTS) Synthesize(_ context.Context, req tts.SynthesisRequest) (*tts.SynthesisResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &tts.SynthesisResult{
		Audio:       []byte("mp3-bytes"),
		ContentType: "audio/mpeg",
		Voice:       tts.NormalizeVoice(req.Voice),
	}, nil
}

func (s *stubTTS) Name() string { return "stub" }

func newChatService(gw llm.Gateway) (*chat.Service, history.Store) {
	hist := history.NewMemoryStore()
	retriever := rag.NewRetriever(vectorstore.NewMemoryStore(), embedding.NewServiceWith(stubEmbedder{}))
	return chat.NewService(retriever, hist, gw, chat.Options{Provider: "groq", Model: "test"}), hist
}

func multipartAudio(t *testing.T, contentType string, audio []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="clip.wav"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(audio)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &body, mw.FormDataContentType()
}

func TestAskProductRequiresQuery(t *testing.T) {
	svc, _ := newChatService(&stubGateway{reply: "hi"})
	h := NewChatHandler(svc, nil, t.TempDir())

	rec := httptest.NewRecorder()
	h.AskProduct(rec, httptest.NewRequest("GET", "/ask_product", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskProductAnswers(t *testing.T) {
	svc, _ := newChatService(&stubGateway{reply: "the headphones are great"})
	h := NewChatHandler(svc, nil, t.TempDir())

	rec := httptest.NewRecorder()
	h.AskProduct(rec, httptest.NewRequest("GET", "/ask_product?query=headphones&session_id=s1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp chat.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "headphones", resp.Query)
	assert.Equal(t, "the headphones are great", resp.Text)
	assert.Equal(t, "s1", resp.SessionID)
}

func TestAskProductGeneratesSessionID(t *testing.T) {
	svc, _ := newChatService(&stubGateway{reply: "ok"})
	h := NewChatHandler(svc, nil, t.TempDir())

	rec := httptest.NewRecorder()
	h.AskProduct(rec, httptest.NewRequest("GET", "/ask_product?query=anything", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp chat.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
}

func TestAskProductGenerationFailureStillReturnsFallback(t *testing.T) {
	svc, _ := newChatService(&stubGateway{err: errors.New("provider down")})
	h := NewChatHandler(svc, nil, t.TempDir())

	rec := httptest.NewRecorder()
	h.AskProduct(rec, httptest.NewRequest("GET", "/ask_product?query=anything&session_id=s1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp chat.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Text, "Sorry")
}

func TestChatQuerySynthesizesAudio(t *testing.T) {
	svc, _ := newChatService(&stubGateway{reply: "spoken answer"})
	h := NewChatHandler(svc, &stubTTS{}, t.TempDir())

	body := `{"query": "best laptop?", "session_id": "s1"}`
	rec := httptest.NewRecorder()
	h.Query(rec, httptest.NewRequest("POST", "/chat/query", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "spoken answer", resp["raw_text"])
	assert.True(t, strings.HasPrefix(resp["audio_path"], "/static/speech_"))
	assert.True(t, strings.HasSuffix(resp["audio_path"], ".mp3"))
}

func TestChatQueryTTSFailureDegradesToText(t *testing.T) {
	svc, _ := newChatService(&stubGateway{reply: "text only"})
	h := NewChatHandler(svc, &stubTTS{err: errors.New("tts down")}, t.TempDir())

	body := `{"query": "best laptop?", "session_id": "s1"}`
	rec := httptest.NewRecorder()
	h.Query(rec, httptest.NewRequest("POST", "/chat/query", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "text only", resp["raw_text"])
	assert.Empty(t, resp["audio_path"])
}

func TestChatQueryValidation(t *testing.T) {
	svc, _ := newChatService(&stubGateway{reply: "x"})
	h := NewChatHandler(svc, nil, t.TempDir())

	rec := httptest.NewRecorder()
	h.Query(rec, httptest.NewRequest("POST", "/chat/query", strings.NewReader(`{"query": ""}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Query(rec, httptest.NewRequest("POST", "/chat/query", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func historyRouter(store history.Store) http.Handler {
	h := NewHistoryHandler(store)
	r := chi.NewRouter()
	r.Get("/history/{session_id}", h.Get)
	r.Post("/history/{session_id}", h.Append)
	return r
}

func TestHistoryGetUnknownSessionIsEmptyList(t *testing.T) {
	r := historyRouter(history.NewMemoryStore())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/history/unknown", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		History []history.Turn `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.History)
}

func TestHistoryAppendThenGet(t *testing.T) {
	r := historyRouter(history.NewMemoryStore())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/history/s1",
		strings.NewReader(`{"role": "user", "text": "hello"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/history/s1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		History []history.Turn `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.History, 1)
	assert.Equal(t, history.RoleUser, resp.History[0].Role)
	assert.Equal(t, "hello", resp.History[0].Text)
}

func TestHistoryAppendRejectsInvalidRole(t *testing.T) {
	r := historyRouter(history.NewMemoryStore())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/history/s1",
		strings.NewReader(`{"role": "system", "text": "injected"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranscribeRejectsUnsupportedFormatBeforeProviderCall(t *testing.T) {
	svc, _ := newChatService(&stubGateway{reply: "x"})
	sttStub := &stubSTT{text: "never used"}
	h := NewVoiceHandler(svc, sttStub, &stubTTS{})

	body, contentType := multipartAudio(t, "video/mp4", []byte("not audio"))
	req := httptest.NewRequest("POST", "/voice/stt", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.Transcribe(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, sttStub.called)
}

func TestTranscribeMissingFilePartIsBadRequest(t *testing.T) {
	svc, _ := newChatService(&stubGateway{reply: "x"})
	sttStub := &stubSTT{text: "never used"}
	h := NewVoiceHandler(svc, sttStub, &stubTTS{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("session_id", "s1"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/voice/stt", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	h.Transcribe(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, sttStub.called)
}

func TestTranscribeNonMultipartBodyIsBadRequest(t *testing.T) {
	svc, _ := newChatService(&stubGateway{reply: "x"})
	sttStub := &stubSTT{text: "never used"}
	h := NewVoiceHandler(svc, sttStub, &stubTTS{})

	req := httptest.NewRequest("POST", "/voice/stt", strings.NewReader("raw bytes"))
	req.Header.Set("Content-Type", "application/octet-stream")

	rec := httptest.NewRecorder()
	h.Transcribe(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, sttStub.called)
}

func TestTranscribeReturnsText(t *testing.T) {
	svc, _ := newChatService(&stubGateway{reply: "x"})
	h := NewVoiceHandler(svc, &stubSTT{text: "any good headphones"}, &stubTTS{})

	body, contentType := multipartAudio(t, "audio/wav", []byte("RIFF fake wav"))
	req := httptest.NewRequest("POST", "/voice/stt", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.Transcribe(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "any good headphones", resp["text"])
}

func TestTranscribeProviderFailureIsBadGateway(t *testing.T) {
	svc, _ := newChatService(&stubGateway{reply: "x"})
	h := NewVoiceHandler(svc, &stubSTT{err: fault.New(fault.Transcription, "whisper down")}, &stubTTS{})

	body, contentType := multipartAudio(t, "audio/wav", []byte("RIFF fake wav"))
	req := httptest.NewRequest("POST", "/voice/stt", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.Transcribe(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSpeakValidatesInput(t *testing.T) {
	svc, _ := newChatService(&stubGateway{reply: "x"})
	h := NewVoiceHandler(svc, &stubSTT{}, &stubTTS{})

	rec := httptest.NewRecorder()
	h.Speak(rec, httptest.NewRequest("POST", "/voice/tts", strings.NewReader(`{"text": ""}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSpeakReturnsAudio(t *testing.T) {
	svc, _ := newChatService(&stubGateway{reply: "x"})
	h := NewVoiceHandler(svc, &stubSTT{}, &stubTTS{})

	rec := httptest.NewRecorder()
	h.Speak(rec, httptest.NewRequest("POST", "/voice/tts",
		strings.NewReader(`{"text": "hello world", "voice": "nova"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["audio_base64"])
	assert.Equal(t, "mp3", resp["format"])
	assert.Equal(t, "nova", resp["voice_used"])
}

func TestSpeakUnknownVoiceFallsBackToDefault(t *testing.T) {
	svc, _ := newChatService(&stubGateway{reply: "x"})
	h := NewVoiceHandler(svc, &stubSTT{}, &stubTTS{})

	rec := httptest.NewRecorder()
	h.Speak(rec, httptest.NewRequest("POST", "/voice/tts",
		strings.NewReader(`{"text": "hello", "voice": "robot"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, tts.DefaultVoice, resp["voice_used"])
}

func TestVoiceChatRoundTrip(t *testing.T) {
	svc, hist := newChatService(&stubGateway{reply: "I recommend the Acme Headphones."})
	h := NewVoiceHandler(svc, &stubSTT{text: "any good headphones?"}, &stubTTS{})

	body, contentType := multipartAudio(t, "audio/wav", []byte("RIFF fake wav"))
	req := httptest.NewRequest("POST", "/voice/chat?session_id=v1&voice=echo", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "any good headphones?", resp["user_query"])
	assert.Equal(t, "I recommend the Acme Headphones.", resp["ai_response"])
	assert.Equal(t, true, resp["has_audio"])
	assert.NotEmpty(t, resp["audio_base64"])
	assert.Equal(t, "echo", resp["voice_used"])
	assert.Equal(t, "v1", resp["session_id"])

	// The transcript round-trips into session history.
	turns, err := hist.History(context.Background(), "v1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "any good headphones?", turns[0].Text)
}

func TestVoiceChatTTSFailureStillAnswers(t *testing.T) {
	svc, _ := newChatService(&stubGateway{reply: "answer text"})
	h := NewVoiceHandler(svc, &stubSTT{text: "question"}, &stubTTS{err: errors.New("tts down")})

	body, contentType := multipartAudio(t, "audio/wav", []byte("RIFF fake wav"))
	req := httptest.NewRequest("POST", "/voice/chat", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "answer text", resp["ai_response"])
	assert.Equal(t, false, resp["has_audio"])
	assert.Empty(t, resp["audio_base64"])
}

func TestVoicesEndpoint(t *testing.T) {
	svc, _ := newChatService(&stubGateway{reply: "x"})
	h := NewVoiceHandler(svc, &stubSTT{}, &stubTTS{})

	rec := httptest.NewRecorder()
	h.Voices(rec, httptest.NewRequest("GET", "/voice/voices", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Voices  []string `json:"voices"`
		Default string   `json:"default"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, tts.Voices, resp.Voices)
	assert.Equal(t, tts.DefaultVoice, resp.Default)
}
