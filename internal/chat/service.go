package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/shoptalk/shoptalk/internal/fault"
	"github.com/shoptalk/shoptalk/internal/history"
	"github.com/shoptalk/shoptalk/internal/llm"
	"github.com/shoptalk/shoptalk/internal/rag"
)

// fallbackMessage is the user-safe reply when generation fails. Internal
// details stay in the logs.
const fallbackMessage = "Sorry, something went wrong while answering your question. Please try again."

const defaultTopK = 3

// Options fix the LLM choice at construction time; there is no per-request
// provider switching.
type Options struct {
	Provider    string
	Model       string
	Temperature float64
	TopK        int
}

// Answer is one completed exchange.
type Answer struct {
	Query     string `json:"query"`
	Text      string `json:"answer"`
	SessionID string `json:"session_id"`
}

// Service is the conversation orchestrator: retrieval, session history,
// prompt assembly, generation and turn persistence.
type Service struct {
	retriever *rag.Retriever
	store     history.Store
	gateway   llm.Gateway
	opts      Options
	locks     *sessionLocks
}

func NewService(retriever *rag.Retriever, store history.Store, gateway llm.Gateway, opts Options) *Service {
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	return &Service{
		retriever: retriever,
		store:     store,
		gateway:   gateway,
		opts:      opts,
		locks:     newSessionLocks(),
	}
}

// Answer runs one exchange for the session. Retrieval failures degrade to an
// empty context; persistence failures never abort an already-computed
// answer; generation failures yield the safe fallback with only the user
// turn recorded.
func (s *Service) Answer(ctx context.Context, query, sessionID string) (*Answer, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	turns, err := s.store.History(ctx, sessionID)
	if err != nil {
		slog.Error("history fetch failed, continuing with empty history",
			"session_id", sessionID, "error", err)
		turns = nil
	}

	docs, err := s.retriever.Search(ctx, query, s.opts.TopK)
	if err != nil {
		// Degrade to a context-free answer; the prompt states plainly
		// when information is unavailable.
		slog.Warn("retrieval failed, answering without context",
			"session_id", sessionID, "query", query, "error", err)
		docs = nil
	}

	resp, err := s.gateway.Chat(ctx, llm.ChatRequest{
		Provider:    s.opts.Provider,
		Model:       s.opts.Model,
		Temperature: s.opts.Temperature,
		Messages:    buildMessages(query, docs, turns),
	})
	if err != nil {
		slog.Error("generation failed", "session_id", sessionID, "query", query, "error", err)
		s.record(ctx, sessionID, history.Turn{Role: history.RoleUser, Text: query})
		return &Answer{Query: query, Text: fallbackMessage, SessionID: sessionID},
			fault.Wrap(fault.Generation, err, "generate answer")
	}

	now := time.Now().UTC()
	s.record(ctx, sessionID, history.Turn{Role: history.RoleUser, Text: query, Timestamp: now})
	s.record(ctx, sessionID, history.Turn{Role: history.RoleAssistant, Text: resp.Content, Timestamp: now.Add(time.Millisecond)})

	return &Answer{Query: query, Text: resp.Content, SessionID: sessionID}, nil
}

func (s *Service) record(ctx context.Context, sessionID string, turn history.Turn) {
	if err := s.store.Append(ctx, sessionID, turn); err != nil {
		slog.Error("failed to persist turn", "session_id", sessionID, "role", turn.Role, "error", err)
	}
}
