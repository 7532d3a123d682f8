package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoptalk/shoptalk/internal/embedding"
	"github.com/shoptalk/shoptalk/internal/fault"
	"github.com/shoptalk/shoptalk/internal/history"
	"github.com/shoptalk/shoptalk/internal/llm"
	"github.com/shoptalk/shoptalk/internal/rag"
	"github.com/shoptalk/shoptalk/internal/vectorstore"
)

type fakeGateway struct {
	mu       sync.Mutex
	requests []llm.ChatRequest
	reply    string
	err      error
}

func (g *fakeGateway) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	return &llm.ChatResponse{Content: g.reply}, nil
}

func (g *fakeGateway) Embed(context.Context, llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	return nil, errors.New("not implemented")
}

func (g *fakeGateway) Provider(string) (llm.Provider, error) { return nil, errors.New("not implemented") }

func (g *fakeGateway) ListModels() []llm.ModelInfo { return nil }

type constEmbedder struct {
	vec []float32
	err error
}

func (e *constEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vec
	}
	return out, nil
}

func newTestService(t *testing.T, gw *fakeGateway, embedder embedding.Embedder) (*Service, *history.MemoryStore, *vectorstore.MemoryStore) {
	t.Helper()
	store := vectorstore.NewMemoryStore()
	hist := history.NewMemoryStore()
	retriever := rag.NewRetriever(store, embedding.NewServiceWith(embedder))
	svc := NewService(retriever, hist, gw, Options{Provider: "groq", Model: "test-model"})
	return svc, hist, store
}

func TestAnswerWithEmptyIndex(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{reply: "I don't have that information available right now, but I can help with related products."}
	svc, hist, _ := newTestService(t, gw, &constEmbedder{vec: []float32{1, 0}})

	ans, err := svc.Answer(ctx, "any drones in stock?", "s1")
	require.NoError(t, err)
	require.NotNil(t, ans)
	assert.Equal(t, "s1", ans.SessionID)
	assert.Equal(t, gw.reply, ans.Text)

	// The context block is present even with nothing retrieved.
	require.Len(t, gw.requests, 1)
	msgs := gw.requests[0].Messages
	require.GreaterOrEqual(t, len(msgs), 3)
	assert.Equal(t, "system", msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "(no matching products found)")
	assert.Equal(t, "any drones in stock?", msgs[len(msgs)-1].Content)

	turns, err := hist.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, history.RoleUser, turns[0].Role)
	assert.Equal(t, history.RoleAssistant, turns[1].Role)
}

func TestAnswerIncludesRetrievedContext(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{reply: "The Acme Headphones are well reviewed."}
	svc, _, store := newTestService(t, gw, &constEmbedder{vec: []float32{1, 0}})

	require.NoError(t, store.Upsert(ctx, []vectorstore.Document{{
		ID:        uuid.New(),
		Text:      "Great sound quality",
		Metadata:  map[string]any{"product_name": "Acme Headphones"},
		Embedding: []float32{1, 0},
	}}))

	_, err := svc.Answer(ctx, "good headphones?", "s1")
	require.NoError(t, err)

	require.Len(t, gw.requests, 1)
	contextMsg := gw.requests[0].Messages[1]
	assert.Contains(t, contextMsg.Content, "[Source 1]")
	assert.Contains(t, contextMsg.Content, "Great sound quality")
	assert.Contains(t, contextMsg.Content, "Product: Acme Headphones")
}

func TestAnswerCarriesHistoryVerbatim(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{reply: "reply"}
	svc, _, _ := newTestService(t, gw, &constEmbedder{vec: []float32{1, 0}})

	_, err := svc.Answer(ctx, "first question", "s1")
	require.NoError(t, err)

	_, err = svc.Answer(ctx, "second question", "s1")
	require.NoError(t, err)

	require.Len(t, gw.requests, 2)
	msgs := gw.requests[1].Messages

	var historyRoles []string
	var historyTexts []string
	for _, m := range msgs[2 : len(msgs)-1] {
		historyRoles = append(historyRoles, m.Role)
		historyTexts = append(historyTexts, m.Content)
	}
	assert.Equal(t, []string{"user", "assistant"}, historyRoles)
	assert.Equal(t, []string{"first question", "reply"}, historyTexts)
}

func TestAnswerGenerationFailureReturnsFallback(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{err: errors.New("provider down")}
	svc, hist, _ := newTestService(t, gw, &constEmbedder{vec: []float32{1, 0}})

	ans, err := svc.Answer(ctx, "question", "s1")
	require.Error(t, err)
	assert.Equal(t, fault.Generation, fault.KindOf(err))
	require.NotNil(t, ans)
	assert.Equal(t, fallbackMessage, ans.Text)

	// Only the user turn is recorded; the fallback is never persisted as an
	// assistant turn.
	turns, err := hist.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, history.RoleUser, turns[0].Role)
	assert.Equal(t, "question", turns[0].Text)
}

func TestAnswerRetrievalFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{reply: "answered without context"}
	svc, _, _ := newTestService(t, gw, &constEmbedder{err: errors.New("embedding api down")})

	ans, err := svc.Answer(ctx, "question", "s1")
	require.NoError(t, err)
	assert.Equal(t, "answered without context", ans.Text)

	require.Len(t, gw.requests, 1)
	assert.Contains(t, gw.requests[0].Messages[1].Content, "(no matching products found)")
}

func TestAnswerConcurrentSameSessionSerialized(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{reply: "ok"}
	svc, hist, _ := newTestService(t, gw, &constEmbedder{vec: []float32{1, 0}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Answer(ctx, "q", "shared")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	turns, err := hist.History(ctx, "shared")
	require.NoError(t, err)
	// Every exchange lands as an intact user/assistant pair.
	require.Len(t, turns, 16)
}

func TestBuildMessagesOrdering(t *testing.T) {
	docs := []vectorstore.SearchResult{
		{Text: "doc one", Score: 0.9, Metadata: map[string]any{"title": "Product One"}},
	}
	turns := []history.Turn{
		{Role: history.RoleUser, Text: "earlier question"},
		{Role: history.RoleAssistant, Text: "earlier answer"},
	}

	msgs := buildMessages("new question", docs, turns)
	require.Len(t, msgs, 5)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "ShopTalk")
	assert.Equal(t, "system", msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "Product: Product One")
	assert.Equal(t, "user", msgs[2].Role)
	assert.Equal(t, "assistant", msgs[3].Role)
	assert.Equal(t, "user", msgs[4].Role)
	assert.Equal(t, "new question", msgs[4].Content)
}
