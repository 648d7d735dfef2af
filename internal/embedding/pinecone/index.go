// Package pinecone implements the vector index interface against the
// Pinecone data-plane HTTP API.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/furqan899/safelift-ai/internal/config"
	"github.com/furqan899/safelift-ai/pkg/models"
)

// Index implements models.VectorIndex against one Pinecone index host.
type Index struct {
	cfg    config.PineconeConfig
	client *http.Client
}

func NewIndex(cfg config.PineconeConfig) *Index {
	return &Index{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (x *Index) Name() string { return "pinecone" }

type vectorPayload struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type upsertRequest struct {
	Vectors   []vectorPayload `json:"vectors"`
	Namespace string          `json:"namespace,omitempty"`
}

func (x *Index) Upsert(ctx context.Context, records []models.VectorRecord) error {
	payload := upsertRequest{Namespace: x.cfg.Namespace}
	for _, r := range records {
		payload.Vectors = append(payload.Vectors, vectorPayload{
			ID:       r.ID,
			Values:   r.Values,
			Metadata: r.Metadata,
		})
	}
	return x.post(ctx, "/vectors/upsert", payload, nil)
}

type queryRequest struct {
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeMetadata bool           `json:"includeMetadata"`
	Namespace       string         `json:"namespace,omitempty"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

func (x *Index) Query(ctx context.Context, q models.VectorQuery) ([]models.VectorMatch, error) {
	req := queryRequest{
		Vector:          q.Vector,
		TopK:            q.TopK,
		IncludeMetadata: true,
		Namespace:       x.cfg.Namespace,
	}
	if len(q.Filter) > 0 {
		// Pinecone equality filters: {"field": {"$eq": "value"}}
		filter := make(map[string]any, len(q.Filter))
		for k, v := range q.Filter {
			filter[k] = map[string]any{"$eq": v}
		}
		req.Filter = filter
	}

	var resp queryResponse
	if err := x.post(ctx, "/query", req, &resp); err != nil {
		return nil, err
	}

	matches := make([]models.VectorMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, models.VectorMatch{
			ID:       m.ID,
			Score:    m.Score,
			Metadata: m.Metadata,
		})
	}
	return matches, nil
}

type deleteRequest struct {
	IDs       []string `json:"ids"`
	Namespace string   `json:"namespace,omitempty"`
}

func (x *Index) Delete(ctx context.Context, ids []string) error {
	return x.post(ctx, "/vectors/delete", deleteRequest{IDs: ids, Namespace: x.cfg.Namespace}, nil)
}

func (x *Index) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal pinecone request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.cfg.IndexHost+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", x.cfg.APIKey)

	resp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("pinecone error: status %d: %s", resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding pinecone response: %w", err)
		}
	}
	return nil
}

var _ models.VectorIndex = (*Index)(nil)
