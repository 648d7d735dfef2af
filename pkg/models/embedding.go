package models

import "context"

// Embedder turns text into a fixed-dimensionality vector. The same embedder
// must be used for indexing and querying so the embedding spaces match.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorRecord is one embedding with its external id and metadata,
// as stored in the vector index.
type VectorRecord struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// VectorQuery is a nearest-neighbor query with optional equality filters.
// An absent filter key means no constraint on that axis.
type VectorQuery struct {
	Vector []float32
	TopK   int
	Filter map[string]string
}

// VectorMatch is one query result. Score is the backend's similarity
// metric, higher is more similar; it is passed through unnormalized.
type VectorMatch struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// VectorIndex stores embeddings and answers filtered nearest-neighbor
// queries. Implementations wrap an external service and carry no
// business logic.
type VectorIndex interface {
	Name() string
	Upsert(ctx context.Context, records []VectorRecord) error
	Query(ctx context.Context, q VectorQuery) ([]VectorMatch, error)
	Delete(ctx context.Context, ids []string) error
}
