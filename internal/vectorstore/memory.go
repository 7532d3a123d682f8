package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process brute-force cosine index. Exact and
// deterministic; loses its contents on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[uuid.UUID]Document)}
}

func (s *MemoryStore) Upsert(_ context.Context, docs []Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range docs {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		s.docs[d.ID] = d
	}
	return nil
}

func (s *MemoryStore) SimilaritySearch(_ context.Context, query []float32, opts SearchOptions) ([]SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, len(s.docs))
	for _, d := range s.docs {
		score := float64(cosineSimilarity(query, d.Embedding))
		if opts.MinScore > 0 && score < opts.MinScore {
			continue
		}
		results = append(results, SearchResult{
			ID:       d.ID,
			Text:     d.Text,
			Metadata: d.Metadata,
			Score:    score,
		})
	}

	// Stable ordering: score desc, ID as tie-break so repeated searches
	// over an unchanged index return identical results.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID.String() < results[j].ID.String()
	})

	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results, nil
}

func (s *MemoryStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[uuid.UUID]Document)
	return nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float32
	for i := 0; i < len(a); i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
