package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shoptalk/shoptalk/internal/fault"
)

// OpenAIConfig holds configuration for the OpenAI TTS backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // default: "https://api.openai.com/v1"
	Model   string // default: "tts-1"
}

// OpenAITTS synthesizes speech with OpenAI's TTS API.
type OpenAITTS struct {
	cfg        OpenAIConfig
	httpClient *http.Client
}

func NewOpenAITTS(cfg OpenAIConfig) *OpenAITTS {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	return &OpenAITTS{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (o *OpenAITTS) Name() string { return "openai-tts" }

// Synthesize converts text to MP3 audio. Unknown voices fall back to the
// default and over-length input is truncated.
func (o *OpenAITTS) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	voice := NormalizeVoice(req.Voice)

	body := map[string]any{
		"model":           o.cfg.Model,
		"input":           Truncate(req.Input),
		"voice":           voice,
		"response_format": "mp3",
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.cfg.BaseURL+"/audio/speech", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fault.Wrap(fault.Generation, err, "tts request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fault.New(fault.Generation, "tts failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.Wrap(fault.Generation, err, "read audio")
	}

	return &SynthesisResult{
		Audio:       audio,
		ContentType: "audio/mpeg",
		Voice:       voice,
	}, nil
}
