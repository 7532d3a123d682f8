package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shoptalk/shoptalk/internal/embedding"
	"github.com/shoptalk/shoptalk/internal/fault"
	"github.com/shoptalk/shoptalk/internal/vectorstore"
)

// docNamespace seeds uuid.NewSHA1 so the same source record always maps to
// the same document ID, making re-ingestion an idempotent upsert.
var docNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// Marker records when the collection was last ingested so process start
// never re-embeds an already-populated index.
type Marker interface {
	LastRun(ctx context.Context) (time.Time, bool)
	SetLastRun(ctx context.Context, at time.Time) error
}

// Pipeline loads all sources, embeds the documents in bulk and upserts them
// into the vector store collection.
type Pipeline struct {
	loaders []Loader
	embed   *embedding.Service
	store   vectorstore.VectorStore
	marker  Marker
}

func NewPipeline(loaders []Loader, embed *embedding.Service, store vectorstore.VectorStore, marker Marker) *Pipeline {
	return &Pipeline{loaders: loaders, embed: embed, store: store, marker: marker}
}

// Run executes one full ingestion pass. Partial failures leave previously
// upserted documents in place; a re-run converges because IDs are stable.
func (p *Pipeline) Run(ctx context.Context) (int, error) {
	var docs []Document
	for _, l := range p.loaders {
		loaded, err := l.Load(ctx)
		if err != nil {
			return 0, fault.Wrap(fault.Ingestion, err, "load source %s", l.Name())
		}
		docs = append(docs, loaded...)
	}

	if len(docs) == 0 {
		return 0, fault.New(fault.Ingestion, "no documents loaded from any source")
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	vectors, err := p.embed.Embed(ctx, texts)
	if err != nil {
		return 0, fault.Wrap(fault.Ingestion, err, "embed %d documents", len(docs))
	}
	if len(vectors) != len(docs) {
		return 0, fault.New(fault.Ingestion, "embedding count mismatch: %d documents, %d vectors", len(docs), len(vectors))
	}

	entries := make([]vectorstore.Document, len(docs))
	for i, d := range docs {
		source, _ := d.Metadata["source"].(string)
		entries[i] = vectorstore.Document{
			ID:        uuid.NewSHA1(docNamespace, []byte(source+"|"+d.Text)),
			Text:      d.Text,
			Metadata:  d.Metadata,
			Embedding: vectors[i],
		}
	}

	if err := p.store.Upsert(ctx, entries); err != nil {
		return 0, fault.Wrap(fault.Ingestion, err, "upsert %d documents", len(entries))
	}

	if p.marker != nil {
		if err := p.marker.SetLastRun(ctx, time.Now().UTC()); err != nil {
			slog.Warn("failed to record ingestion marker", "error", err)
		}
	}

	slog.Info("ingestion complete", "documents", len(entries))
	return len(entries), nil
}

// NeedsRun reports whether the collection looks unpopulated. Used at startup
// to decide whether to enqueue an initial ingestion instead of re-running
// unconditionally on every boot.
func (p *Pipeline) NeedsRun(ctx context.Context) bool {
	if p.marker != nil {
		if _, ok := p.marker.LastRun(ctx); ok {
			return false
		}
	}
	n, err := p.store.Count(ctx)
	if err != nil {
		slog.Warn("could not count indexed documents", "error", err)
		return false
	}
	return n == 0
}
