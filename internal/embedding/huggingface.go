package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HuggingFaceConfig holds configuration for the HF Inference API backend.
type HuggingFaceConfig struct {
	Token   string
	BaseURL string // default: "https://api-inference.huggingface.co"
	Model   string
}

// HuggingFaceEmbedder calls the feature-extraction pipeline of the Hugging
// Face Inference API.
type HuggingFaceEmbedder struct {
	cfg        HuggingFaceConfig
	httpClient *http.Client
}

func NewHuggingFaceEmbedder(cfg HuggingFaceConfig) *HuggingFaceEmbedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api-inference.huggingface.co"
	}
	return &HuggingFaceEmbedder{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (h *HuggingFaceEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	body := map[string]any{
		"inputs":  texts,
		"options": map[string]any{"wait_for_model": true},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/pipeline/feature-extraction/%s", h.cfg.BaseURL, h.cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.cfg.Token)
	}

	resp, err := h.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("huggingface request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("huggingface embedding failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	var vecs [][]float32
	if err := json.Unmarshal(respBody, &vecs); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vecs))
	}

	return vecs, nil
}
