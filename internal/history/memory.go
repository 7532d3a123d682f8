package history

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the volatile in-process fallback. Same contract as the
// durable store; contents are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]Turn)}
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, turn Turn) error {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], turn)
	return nil
}

func (s *MemoryStore) History(_ context.Context, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.sessions[sessionID]
	turns := make([]Turn, 0, len(stored))
	for _, t := range stored {
		if t.Role == "" || t.Text == "" {
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *MemoryStore) Prune(_ context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, turns := range s.sessions {
		kept := turns[:0]
		for _, t := range turns {
			if t.Timestamp.Before(cutoff) {
				pruned++
				continue
			}
			kept = append(kept, t)
		}
		if len(kept) == 0 {
			delete(s.sessions, id)
		} else {
			s.sessions[id] = kept
		}
	}
	return pruned, nil
}
