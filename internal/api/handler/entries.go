package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/furqan899/safelift-ai/internal/api/middleware"
	"github.com/furqan899/safelift-ai/internal/api/response"
	"github.com/furqan899/safelift-ai/internal/embedding"
	"github.com/furqan899/safelift-ai/internal/kb"
	"github.com/furqan899/safelift-ai/internal/store"
	"github.com/furqan899/safelift-ai/pkg/models"
)

// EntryService is the knowledge base surface the entry handlers depend on.
type EntryService interface {
	Create(ctx context.Context, params kb.CreateParams) (*models.KnowledgeEntry, error)
	Update(ctx context.Context, id uuid.UUID, params kb.UpdateParams) (*models.KnowledgeEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.KnowledgeEntry, error)
	List(ctx context.Context, filter store.EntryFilter) ([]*models.KnowledgeEntry, int, error)
	Regenerate(ctx context.Context, id uuid.UUID) ([]string, error)
	ToggleStatus(ctx context.Context, id uuid.UUID) (*models.KnowledgeEntry, error)
	Stats(ctx context.Context) (*store.EntryStats, error)
	Categories(ctx context.Context) ([]store.CategoryCount, error)
}

type entryRequest struct {
	IssueTitleEN *string        `json:"issue_title_en"`
	SolutionEN   *string        `json:"solution_en"`
	IssueTitleSV *string        `json:"issue_title_sv"`
	SolutionSV   *string        `json:"solution_sv"`
	Category     *string        `json:"category"`
	Status       *string        `json:"status"`
	Tags         []string       `json:"tags"`
	Metadata     map[string]any `json:"metadata"`
}

// NewCreateEntryHandler returns the handler for POST /api/v1/knowledge-base/entries.
func NewCreateEntryHandler(svc EntryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user identity", nil)
			return
		}

		var req entryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		entry, err := svc.Create(r.Context(), kb.CreateParams{
			IssueTitleEN: strOrEmpty(req.IssueTitleEN),
			SolutionEN:   strOrEmpty(req.SolutionEN),
			IssueTitleSV: strOrEmpty(req.IssueTitleSV),
			SolutionSV:   strOrEmpty(req.SolutionSV),
			Category:     strOrEmpty(req.Category),
			Status:       strOrEmpty(req.Status),
			Tags:         req.Tags,
			Metadata:     req.Metadata,
			CreatedBy:    userID,
		})
		if err != nil {
			entryError(w, err)
			return
		}
		response.Created(w, entry)
	}
}

// NewUpdateEntryHandler returns the handler for PUT /api/v1/knowledge-base/entries/{entryID}.
func NewUpdateEntryHandler(svc EntryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := entryID(w, r)
		if !ok {
			return
		}

		var req entryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		entry, err := svc.Update(r.Context(), id, kb.UpdateParams{
			IssueTitleEN: req.IssueTitleEN,
			SolutionEN:   req.SolutionEN,
			IssueTitleSV: req.IssueTitleSV,
			SolutionSV:   req.SolutionSV,
			Category:     req.Category,
			Status:       req.Status,
			Tags:         req.Tags,
			Metadata:     req.Metadata,
		})
		if err != nil {
			entryError(w, err)
			return
		}
		response.JSON(w, entry)
	}
}

// NewDeleteEntryHandler returns the handler for DELETE /api/v1/knowledge-base/entries/{entryID}.
func NewDeleteEntryHandler(svc EntryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := entryID(w, r)
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			entryError(w, err)
			return
		}
		response.NoContent(w)
	}
}

// NewGetEntryHandler returns the handler for GET /api/v1/knowledge-base/entries/{entryID}.
func NewGetEntryHandler(svc EntryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := entryID(w, r)
		if !ok {
			return
		}
		entry, err := svc.Get(r.Context(), id)
		if err != nil {
			entryError(w, err)
			return
		}
		response.JSON(w, entry)
	}
}

// NewListEntriesHandler returns the handler for GET /api/v1/knowledge-base/entries.
func NewListEntriesHandler(svc EntryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		if page < 1 {
			page = 1
		}
		limit, _ := strconv.Atoi(q.Get("limit"))
		if limit < 1 || limit > 100 {
			limit = 20
		}

		filter := store.EntryFilter{
			Status:          q.Get("status"),
			EmbeddingStatus: q.Get("embedding_status"),
			Category:        q.Get("category"),
			Query:           q.Get("search"),
			Page:            page,
			Limit:           limit,
		}

		entries, total, err := svc.List(r.Context(), filter)
		if err != nil {
			entryError(w, err)
			return
		}
		response.Collection(w, entries, response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: page*limit < total,
		})
	}
}

// NewRegenerateHandler returns the handler for
// POST /api/v1/knowledge-base/entries/{entryID}/regenerate-embeddings.
func NewRegenerateHandler(svc EntryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := entryID(w, r)
		if !ok {
			return
		}
		vectorIDs, err := svc.Regenerate(r.Context(), id)
		if err != nil {
			entryError(w, err)
			return
		}
		response.JSON(w, map[string]any{
			"message":    "Embeddings regenerated successfully",
			"vector_ids": vectorIDs,
		})
	}
}

// NewToggleStatusHandler returns the handler for
// POST /api/v1/knowledge-base/entries/{entryID}/toggle-status.
func NewToggleStatusHandler(svc EntryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := entryID(w, r)
		if !ok {
			return
		}
		entry, err := svc.ToggleStatus(r.Context(), id)
		if err != nil {
			entryError(w, err)
			return
		}
		response.JSON(w, entry)
	}
}

// NewEntryStatsHandler returns the handler for GET /api/v1/knowledge-base/stats.
func NewEntryStatsHandler(svc EntryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			entryError(w, err)
			return
		}
		response.JSON(w, stats)
	}
}

// NewCategoriesHandler returns the handler for GET /api/v1/knowledge-base/categories.
func NewCategoriesHandler(svc EntryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := svc.Categories(r.Context())
		if err != nil {
			entryError(w, err)
			return
		}
		response.JSON(w, categories)
	}
}

func entryID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "entryID must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

// entryError maps knowledge base errors onto the response envelope.
func entryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, kb.ErrNoCompleteLanguage),
		errors.Is(err, kb.ErrPartialLanguage),
		errors.Is(err, kb.ErrMissingCategory),
		errors.Is(err, kb.ErrInvalidStatus):
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, embedding.ErrNoContent):
		response.Error(w, http.StatusBadRequest, "NO_CONTENT", err.Error(), nil)
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Entry not found", nil)
	case errors.Is(err, embedding.ErrUnavailable):
		response.Error(w, http.StatusBadGateway, "EMBEDDING_UNAVAILABLE",
			"Embedding services are not configured", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
