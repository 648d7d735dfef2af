package mock

import (
	"context"
	"fmt"

	"github.com/furqan899/safelift-ai/pkg/models"
)

// MockEmbedder satisfies models.Embedder for testing.
type MockEmbedder struct {
	Name_     string
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)
}

func (m *MockEmbedder) Name() string { return m.Name_ }

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return nil, nil
}

// NewMockEmbedder returns a MockEmbedder producing a deterministic
// fixed-dimension vector derived from the input length.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Name_: "mock",
		EmbedFunc: func(_ context.Context, text string) ([]float32, error) {
			vec := make([]float32, 8)
			for i := range vec {
				vec[i] = float32(len(text)%7) + float32(i)*0.1
			}
			return vec, nil
		},
	}
}

// NewFailingEmbedder returns a MockEmbedder that always returns the given error.
func NewFailingEmbedder(err error) *MockEmbedder {
	return &MockEmbedder{
		Name_: "mock-failing",
		EmbedFunc: func(_ context.Context, _ string) ([]float32, error) {
			return nil, err
		},
	}
}

// MockIndex satisfies models.VectorIndex for testing. With nil funcs it
// records upserts and deletes in memory and queries return the stored
// records in insertion order.
type MockIndex struct {
	Name_      string
	UpsertFunc func(ctx context.Context, records []models.VectorRecord) error
	QueryFunc  func(ctx context.Context, q models.VectorQuery) ([]models.VectorMatch, error)
	DeleteFunc func(ctx context.Context, ids []string) error

	Upserted []models.VectorRecord
	Deleted  []string
}

func (m *MockIndex) Name() string { return m.Name_ }

func (m *MockIndex) Upsert(ctx context.Context, records []models.VectorRecord) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, records)
	}
	m.Upserted = append(m.Upserted, records...)
	return nil
}

func (m *MockIndex) Query(ctx context.Context, q models.VectorQuery) ([]models.VectorMatch, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, q)
	}
	var matches []models.VectorMatch
	for i, r := range m.Upserted {
		if len(matches) >= q.TopK {
			break
		}
		if !matchesFilter(r.Metadata, q.Filter) {
			continue
		}
		matches = append(matches, models.VectorMatch{
			ID:       r.ID,
			Score:    1.0 - float64(i)*0.01,
			Metadata: r.Metadata,
		})
	}
	return matches, nil
}

func (m *MockIndex) Delete(ctx context.Context, ids []string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, ids)
	}
	m.Deleted = append(m.Deleted, ids...)
	kept := m.Upserted[:0]
	for _, r := range m.Upserted {
		if !contains(ids, r.ID) {
			kept = append(kept, r)
		}
	}
	m.Upserted = kept
	return nil
}

func matchesFilter(meta map[string]any, filter map[string]string) bool {
	for k, want := range filter {
		got, _ := meta[k].(string)
		if got != want {
			return false
		}
	}
	return true
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// NewMockIndex returns an empty in-memory MockIndex.
func NewMockIndex() *MockIndex {
	return &MockIndex{Name_: "mock"}
}

// NewFailingIndex returns a MockIndex whose every operation returns the
// given error.
func NewFailingIndex(err error) *MockIndex {
	return &MockIndex{
		Name_: "mock-failing",
		UpsertFunc: func(_ context.Context, _ []models.VectorRecord) error {
			return fmt.Errorf("upsert: %w", err)
		},
		QueryFunc: func(_ context.Context, _ models.VectorQuery) ([]models.VectorMatch, error) {
			return nil, fmt.Errorf("query: %w", err)
		},
		DeleteFunc: func(_ context.Context, _ []string) error {
			return fmt.Errorf("delete: %w", err)
		},
	}
}

// Compile-time checks.
var _ models.Embedder = (*MockEmbedder)(nil)
var _ models.VectorIndex = (*MockIndex)(nil)
