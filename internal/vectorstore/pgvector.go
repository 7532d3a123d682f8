package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgVectorStore persists documents in the product_documents table, scoped by
// collection name.
type PgVectorStore struct {
	db         *pgxpool.Pool
	collection string
}

func NewPgVectorStore(db *pgxpool.Pool, collection string) *PgVectorStore {
	return &PgVectorStore{db: db, collection: collection}
}

func (s *PgVectorStore) Upsert(ctx context.Context, docs []Document) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, d := range docs {
		id := d.ID
		if id == uuid.Nil {
			id = uuid.New()
		}

		embedding := pgvector.NewVector(d.Embedding)

		_, err := tx.Exec(ctx,
			`INSERT INTO product_documents (id, collection, content, embedding, metadata)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE SET content = $3, embedding = $4, metadata = $5`,
			id, s.collection, d.Text, embedding, d.Metadata,
		)
		if err != nil {
			return fmt.Errorf("upsert document %d: %w", i, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PgVectorStore) SimilaritySearch(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}

	embedding := pgvector.NewVector(query)

	rows, err := s.db.Query(ctx,
		`SELECT id, content, metadata,
		        1 - (embedding <=> $1) AS score
		 FROM product_documents
		 WHERE collection = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		embedding, s.collection, opts.TopK,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Text, &r.Metadata, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if opts.MinScore > 0 && r.Score < opts.MinScore {
			continue
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *PgVectorStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.Exec(ctx, "DELETE FROM product_documents WHERE collection = $1", s.collection)
	return err
}

func (s *PgVectorStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM product_documents WHERE collection = $1", s.collection,
	).Scan(&n)
	return n, err
}
