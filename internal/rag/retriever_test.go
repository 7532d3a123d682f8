package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoptalk/shoptalk/internal/embedding"
	"github.com/shoptalk/shoptalk/internal/fault"
	"github.com/shoptalk/shoptalk/internal/vectorstore"
)

type fixedEmbedder struct {
	vec []float32
	err error
}

func (e *fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vec
	}
	return out, nil
}

func TestRetrieverReturnsTopK(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	require.NoError(t, store.Upsert(ctx, []vectorstore.Document{
		{ID: uuid.New(), Text: "headphones review", Embedding: []float32{1, 0}},
		{ID: uuid.New(), Text: "shoes review", Embedding: []float32{0, 1}},
		{ID: uuid.New(), Text: "earbuds review", Embedding: []float32{0.9, 0.1}},
	}))

	r := NewRetriever(store, embedding.NewServiceWith(&fixedEmbedder{vec: []float32{1, 0}}))

	results, err := r.Search(ctx, "good headphones", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "headphones review", results[0].Text)
	assert.Equal(t, "earbuds review", results[1].Text)
}

func TestRetrieverEmbeddingFailure(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	r := NewRetriever(store, embedding.NewServiceWith(&fixedEmbedder{err: errors.New("api down")}))

	_, err := r.Search(context.Background(), "query", 3)
	require.Error(t, err)
	assert.Equal(t, fault.Retrieval, fault.KindOf(err))
}

func TestRetrieverEmptyIndex(t *testing.T) {
	r := NewRetriever(vectorstore.NewMemoryStore(), embedding.NewServiceWith(&fixedEmbedder{vec: []float32{1, 0}}))

	results, err := r.Search(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}
