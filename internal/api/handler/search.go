package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"unicode/utf8"

	"github.com/furqan899/safelift-ai/internal/api/response"
	"github.com/furqan899/safelift-ai/internal/embedding"
	"github.com/furqan899/safelift-ai/pkg/models"
)

const (
	maxSearchQueryChars = 1000
	maxSearchTopK       = 20
)

// Searcher is the similarity search surface the handler depends on.
type Searcher interface {
	Search(ctx context.Context, params embedding.SearchParams) ([]embedding.SearchResult, error)
}

// NewSearchHandler returns the handler for POST /api/v1/knowledge-base/search.
func NewSearchHandler(svc Searcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query          string `json:"query"`
			Language       string `json:"language"`
			Category       string `json:"category"`
			TopK           *int   `json:"top_k"`
			IncludeContent *bool  `json:"include_content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.Query == "" {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "query is required", nil)
			return
		}
		if utf8.RuneCountInString(req.Query) > maxSearchQueryChars {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "query must be at most 1000 characters", nil)
			return
		}
		if req.Language != "" && req.Language != models.LanguageEnglish && req.Language != models.LanguageSwedish {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "language must be en or sv", nil)
			return
		}

		// absent top_k falls back to the service default
		topK := 0
		if req.TopK != nil {
			if *req.TopK < 1 || *req.TopK > maxSearchTopK {
				response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "top_k must be between 1 and 20", nil)
				return
			}
			topK = *req.TopK
		}

		// content is included unless explicitly switched off
		includeContent := true
		if req.IncludeContent != nil {
			includeContent = *req.IncludeContent
		}

		results, err := svc.Search(r.Context(), embedding.SearchParams{
			Query:          req.Query,
			Language:       req.Language,
			Category:       req.Category,
			TopK:           topK,
			IncludeContent: includeContent,
		})
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		if results == nil {
			results = []embedding.SearchResult{}
		}
		response.JSON(w, map[string]any{
			"results": results,
			"count":   len(results),
		})
	}
}
