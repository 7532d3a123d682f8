package vectorstore

import (
	"context"

	"github.com/google/uuid"
)

// Document is one indexed entry: the embedded review/product text plus the
// metadata used for citation and filtering, never for ranking.
type Document struct {
	ID        uuid.UUID
	Text      string
	Metadata  map[string]any
	Embedding []float32
}

type SearchOptions struct {
	TopK     int
	MinScore float64
}

type SearchResult struct {
	ID       uuid.UUID      `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

// VectorStore stores documents for a single named collection. Upsert with a
// stable document ID makes re-ingestion idempotent.
type VectorStore interface {
	Upsert(ctx context.Context, docs []Document) error
	SimilaritySearch(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error)
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}
