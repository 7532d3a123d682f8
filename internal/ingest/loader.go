package ingest

import "context"

// Document is a raw (text, metadata) pair produced by a loader. Metadata
// always carries a "source" tag and the domain fields used for citation.
type Document struct {
	Text     string
	Metadata map[string]any
}

// Loader fetches records from one source and normalizes them into Documents.
type Loader interface {
	Load(ctx context.Context) ([]Document, error)
	Name() string
}
