// Package pgvector implements the vector index interface on top of Postgres
// with the pgvector extension, for deployments without an external index.
package pgvector

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	"github.com/furqan899/safelift-ai/pkg/models"
)

// Index implements models.VectorIndex backed by a kb_vectors table.
type Index struct {
	pool *pgxpool.Pool
}

// NewIndex creates the index, ensuring the pgvector extension and backing
// table exist. Fails when the extension is not installed on the server.
func NewIndex(ctx context.Context, pool *pgxpool.Pool, dimensions int) (*Index, error) {
	ddl := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS kb_vectors (
			id        TEXT PRIMARY KEY,
			embedding VECTOR(%d) NOT NULL,
			metadata  JSONB NOT NULL DEFAULT '{}'
		);
		CREATE INDEX IF NOT EXISTS idx_kb_vectors_metadata ON kb_vectors USING GIN (metadata);`,
		dimensions)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("prepare kb_vectors table: %w", err)
	}
	return &Index{pool: pool}, nil
}

func (x *Index) Name() string { return "pgvector" }

func (x *Index) Upsert(ctx context.Context, records []models.VectorRecord) error {
	for _, r := range records {
		_, err := x.pool.Exec(ctx,
			`INSERT INTO kb_vectors (id, embedding, metadata) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata`,
			r.ID, pgv.NewVector(r.Values), r.Metadata)
		if err != nil {
			return fmt.Errorf("upsert vector %s: %w", r.ID, err)
		}
	}
	return nil
}

// Query runs a cosine-similarity nearest-neighbor search. The score is
// 1 - cosine distance, so higher means more similar, matching the
// hosted-index convention.
func (x *Index) Query(ctx context.Context, q models.VectorQuery) ([]models.VectorMatch, error) {
	conditions := []string{"TRUE"}
	args := []any{pgv.NewVector(q.Vector)}
	argIdx := 2

	// Stable key order keeps the generated SQL deterministic.
	for _, key := range sortedKeys(q.Filter) {
		conditions = append(conditions, fmt.Sprintf("metadata->>'%s' = $%d", key, argIdx))
		args = append(args, q.Filter[key])
		argIdx++
	}

	query := fmt.Sprintf(`
		SELECT id, 1 - (embedding <=> $1) AS score, metadata
		FROM kb_vectors
		WHERE %s
		ORDER BY embedding <=> $1
		LIMIT $%d`, strings.Join(conditions, " AND "), argIdx)
	args = append(args, q.TopK)

	rows, err := x.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query kb_vectors: %w", err)
	}
	defer rows.Close()

	var matches []models.VectorMatch
	for rows.Next() {
		var m models.VectorMatch
		if err := rows.Scan(&m.ID, &m.Score, &m.Metadata); err != nil {
			return nil, fmt.Errorf("scan vector match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (x *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := x.pool.Exec(ctx, `DELETE FROM kb_vectors WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ models.VectorIndex = (*Index)(nil)
