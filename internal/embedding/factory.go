package embedding

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/furqan899/safelift-ai/internal/config"
	"github.com/furqan899/safelift-ai/internal/embedding/ollama"
	"github.com/furqan899/safelift-ai/internal/embedding/openai"
	"github.com/furqan899/safelift-ai/internal/embedding/pgvector"
	"github.com/furqan899/safelift-ai/internal/embedding/pinecone"
	"github.com/furqan899/safelift-ai/pkg/models"
)

// NewEmbedder constructs the configured embedding provider, or the null
// provider when none is configured. Called once at server startup.
func NewEmbedder(cfg config.EmbeddingConfig) (models.Embedder, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewProvider(cfg.OpenAI), nil
	case "ollama":
		return ollama.NewProvider(cfg.Ollama), nil
	case "":
		return NullEmbedder{}, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q: must be one of openai, ollama", cfg.Provider)
	}
}

// NewVectorIndex constructs the configured vector index backend, or the
// null index when none is configured. The pool is only used by the
// pgvector backend.
func NewVectorIndex(ctx context.Context, cfg config.VectorConfig, pool *pgxpool.Pool) (models.VectorIndex, error) {
	switch cfg.Backend {
	case "pinecone":
		return pinecone.NewIndex(cfg.Pinecone), nil
	case "pgvector":
		return pgvector.NewIndex(ctx, pool, cfg.Pgvector.Dimensions)
	case "":
		return NullIndex{}, nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q: must be one of pinecone, pgvector", cfg.Backend)
	}
}

// NullEmbedder is used when no embedding provider is configured.
// Writes fail with ErrUnavailable so callers can mark entries failed.
type NullEmbedder struct{}

func (NullEmbedder) Name() string { return "none" }
func (NullEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, ErrUnavailable
}

// NullIndex is used when no vector backend is configured. Upserts fail,
// queries return no matches, deletes are accepted silently.
type NullIndex struct{}

func (NullIndex) Name() string { return "none" }
func (NullIndex) Upsert(_ context.Context, _ []models.VectorRecord) error {
	return ErrUnavailable
}
func (NullIndex) Query(_ context.Context, _ models.VectorQuery) ([]models.VectorMatch, error) {
	return nil, nil
}
func (NullIndex) Delete(_ context.Context, _ []string) error { return nil }
