package embedding

import (
	"context"
	"fmt"

	"github.com/shoptalk/shoptalk/internal/config"
	"github.com/shoptalk/shoptalk/internal/fault"
	"github.com/shoptalk/shoptalk/internal/llm"
)

// Embedder turns texts into fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Service batches embedding requests against the configured provider.
type Service struct {
	embedder Embedder
}

// NewService selects the embedding backend by provider name. Unknown names
// fail construction rather than defaulting.
func NewService(cfg config.EmbeddingsConfig, gw llm.Gateway) (*Service, error) {
	switch cfg.Provider {
	case "openai":
		model := cfg.Model
		if model == "" {
			model = "text-embedding-3-small"
		}
		return &Service{embedder: &gatewayEmbedder{gateway: gw, model: model}}, nil
	case "huggingface":
		model := cfg.Model
		if model == "" {
			model = "sentence-transformers/all-MiniLM-L6-v2"
		}
		return &Service{embedder: NewHuggingFaceEmbedder(HuggingFaceConfig{
			Token:   cfg.HFToken,
			BaseURL: cfg.HFURL,
			Model:   model,
		})}, nil
	default:
		return nil, fault.New(fault.Configuration, "unsupported embeddings provider %q", cfg.Provider)
	}
}

// NewServiceWith wraps an existing embedder. Used by tests and the memory
// vector store wiring.
func NewServiceWith(e Embedder) *Service {
	return &Service{embedder: e}
}

func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// Batch in groups of 100 for API limits
	const batchSize = 100
	var all [][]float32

	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vecs, err := s.embedder.Embed(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d: %w", i/batchSize, err)
		}
		if len(vecs) != end-i {
			return nil, fmt.Errorf("embed batch %d: expected %d vectors, got %d", i/batchSize, end-i, len(vecs))
		}
		all = append(all, vecs...)
	}

	return all, nil
}

func (s *Service) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vecs[0], nil
}

type gatewayEmbedder struct {
	gateway llm.Gateway
	model   string
}

func (g *gatewayEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := g.gateway.Embed(ctx, llm.EmbeddingRequest{
		Provider: "openai",
		Model:    g.model,
		Input:    texts,
	})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}
