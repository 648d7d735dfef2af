package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/furqan899/safelift-ai/internal/cache"
	"github.com/furqan899/safelift-ai/internal/store"
	"github.com/furqan899/safelift-ai/pkg/models"
)

const (
	defaultTopK = 5
	maxTopK     = 20

	searchCacheTTL = time.Minute
)

// SearchParams holds validated parameters for a similarity search.
// Empty Language/Category mean no constraint on that axis.
type SearchParams struct {
	Query          string
	Language       string
	Category       string
	TopK           int
	IncludeContent bool
}

// SearchResult is one ranked match from the vector index.
type SearchResult struct {
	EntryID  string         `json:"entry_id"`
	Score    float64        `json:"score"`
	Content  string         `json:"content,omitempty"`
	Language string         `json:"language"`
	Category string         `json:"category"`
	Metadata map[string]any `json:"metadata"`
}

// Service orchestrates embedding generation and similarity search for
// knowledge entries. It owns the per-entry embedding status state machine.
type Service struct {
	embedder models.Embedder
	index    models.VectorIndex
	store    store.Store
	cache    cache.Cache
	timeout  time.Duration
}

// NewService creates a new embedding Service.
func NewService(embedder models.Embedder, index models.VectorIndex, st store.Store, ca cache.Cache, timeout time.Duration) *Service {
	return &Service{
		embedder: embedder,
		index:    index,
		store:    st,
		cache:    ca,
		timeout:  timeout,
	}
}

// Available reports whether both the embedder and the vector index are
// configured. Selection happens once at startup; "none" is the null backend.
func (s *Service) Available() bool {
	return s.embedder.Name() != "none" && s.index.Name() != "none"
}

// ProcessEntry (re)generates embeddings for every complete language variant
// of the entry and persists the outcome. It returns the vector ids stored on
// success. Failures are terminal for this run; callers re-trigger explicitly.
func (s *Service) ProcessEntry(ctx context.Context, entryID uuid.UUID) ([]string, error) {
	entry, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("load entry %s: %w", entryID, err)
	}

	if err := s.store.SetEntryEmbeddingStatus(ctx, entryID, models.EmbeddingStatusProcessing); err != nil {
		return nil, fmt.Errorf("mark entry processing: %w", err)
	}

	vectorIDs, err := s.generateAndStore(ctx, entry)
	if err != nil {
		slog.Error("embedding generation failed", "entry_id", entryID, "error", err)
		if stErr := s.store.SetEntryEmbeddingStatus(ctx, entryID, models.EmbeddingStatusFailed); stErr != nil {
			slog.Error("failed to mark entry failed", "entry_id", entryID, "error", stErr)
		}
		return nil, err
	}

	if err := s.store.MarkEntryProcessed(ctx, entryID, vectorIDs, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("mark entry processed: %w", err)
	}

	slog.Info("entry processed", "entry_id", entryID, "embeddings", len(vectorIDs))
	return vectorIDs, nil
}

// generateAndStore embeds each complete language pair and upserts the
// vectors in a single batch. English is always processed before Swedish.
func (s *Service) generateAndStore(ctx context.Context, entry *models.KnowledgeEntry) ([]string, error) {
	if !s.Available() {
		return nil, fmt.Errorf("%w: embedder=%s index=%s", ErrUnavailable, s.embedder.Name(), s.index.Name())
	}

	var records []models.VectorRecord
	for _, lang := range entry.Languages() {
		content := entry.CombinedContent(lang)

		embedCtx, cancel := context.WithTimeout(ctx, s.timeout)
		vector, err := s.embedder.Embed(embedCtx, content)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("embed %s content: %w", lang, err)
		}

		records = append(records, models.VectorRecord{
			ID:       entry.VectorID(lang),
			Values:   vector,
			Metadata: buildMetadata(entry, lang, content),
		})
	}

	if len(records) == 0 {
		return nil, ErrNoContent
	}

	upsertCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.index.Upsert(upsertCtx, records); err != nil {
		return nil, fmt.Errorf("upsert vectors: %w", err)
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids, nil
}

// DeleteVectors removes an entry's vectors from the index, keeping the
// index in sync when an entry is deleted or its content removed.
func (s *Service) DeleteVectors(ctx context.Context, vectorIDs []string) error {
	if len(vectorIDs) == 0 || !s.Available() {
		return nil
	}
	delCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.index.Delete(delCtx, vectorIDs); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	return nil
}

// Search embeds the query and returns the index's nearest matches under the
// given filters, preserving the index's ranking order. Backend errors and an
// unconfigured backend both degrade to an empty result, never an error.
func (s *Service) Search(ctx context.Context, params SearchParams) ([]SearchResult, error) {
	query := strings.TrimSpace(params.Query)
	if query == "" {
		return nil, nil
	}
	if !s.Available() {
		slog.Warn("search backends not configured, returning empty result")
		return nil, nil
	}

	topK := params.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	cacheKey := cache.SearchKey(query, params.Language, params.Category, topK)
	if cached, ok, err := s.cache.Get(ctx, cacheKey); err == nil && ok {
		var results []SearchResult
		if err := json.Unmarshal(cached, &results); err == nil {
			return withContent(results, params.IncludeContent), nil
		}
	}

	embedCtx, cancel := context.WithTimeout(ctx, s.timeout)
	vector, err := s.embedder.Embed(embedCtx, query)
	cancel()
	if err != nil {
		slog.Error("query embedding failed", "error", err)
		return nil, nil
	}

	filter := map[string]string{}
	if params.Language != "" {
		filter["language"] = params.Language
	}
	if params.Category != "" {
		filter["category"] = params.Category
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	matches, err := s.index.Query(queryCtx, models.VectorQuery{
		Vector: vector,
		TopK:   topK,
		Filter: filter,
	})
	if err != nil {
		slog.Error("vector query failed", "error", err)
		return nil, nil
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, SearchResult{
			EntryID:  metaString(m.Metadata, "entry_id"),
			Score:    m.Score,
			Content:  metaString(m.Metadata, "text"),
			Language: metaString(m.Metadata, "language"),
			Category: metaString(m.Metadata, "category"),
			Metadata: m.Metadata,
		})
	}

	if payload, err := json.Marshal(results); err == nil {
		_ = s.cache.Set(ctx, cacheKey, payload, searchCacheTTL)
	}

	return withContent(results, params.IncludeContent), nil
}

// buildMetadata assembles the vector metadata stored alongside each
// embedding. The combined text is included so search can return content
// without a database round trip.
func buildMetadata(entry *models.KnowledgeEntry, language, content string) map[string]any {
	return map[string]any{
		"entry_id":   entry.ID.String(),
		"language":   language,
		"category":   entry.Category,
		"created_by": entry.CreatedBy.String(),
		"status":     entry.Status,
		"tags":       entry.Tags,
		"text":       content,
	}
}

func withContent(results []SearchResult, include bool) []SearchResult {
	if include {
		return results
	}
	for i := range results {
		results[i].Content = ""
	}
	return results
}

func metaString(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
