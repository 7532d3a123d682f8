package rag

import (
	"context"

	"github.com/shoptalk/shoptalk/internal/embedding"
	"github.com/shoptalk/shoptalk/internal/fault"
	"github.com/shoptalk/shoptalk/internal/vectorstore"
)

// Retriever embeds a query and returns the top-K most similar indexed
// documents. Deterministic for a fixed index and query.
type Retriever struct {
	store    vectorstore.VectorStore
	embedSvc *embedding.Service
}

func NewRetriever(store vectorstore.VectorStore, embedSvc *embedding.Service) *Retriever {
	return &Retriever{store: store, embedSvc: embedSvc}
}

func (r *Retriever) Search(ctx context.Context, query string, k int) ([]vectorstore.SearchResult, error) {
	queryVec, err := r.embedSvc.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fault.Wrap(fault.Retrieval, err, "embed query")
	}

	results, err := r.store.SimilaritySearch(ctx, queryVec, vectorstore.SearchOptions{TopK: k})
	if err != nil {
		return nil, fault.Wrap(fault.Retrieval, err, "similarity search")
	}
	return results, nil
}
