package kb

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/furqan899/safelift-ai/internal/embedding"
	"github.com/furqan899/safelift-ai/internal/store"
	"github.com/furqan899/safelift-ai/pkg/models"
)

// CreateParams holds the fields accepted when creating a knowledge entry.
type CreateParams struct {
	IssueTitleEN string
	SolutionEN   string
	IssueTitleSV string
	SolutionSV   string
	Category     string
	Status       string
	Tags         []string
	Metadata     map[string]any
	CreatedBy    uuid.UUID
}

// UpdateParams holds a partial update. Nil fields are left unchanged.
type UpdateParams struct {
	IssueTitleEN *string
	SolutionEN   *string
	IssueTitleSV *string
	SolutionSV   *string
	Category     *string
	Status       *string
	Tags         []string
	Metadata     map[string]any
}

// Service owns knowledge entry lifecycle: validation, persistence, and
// keeping the vector index in step with entry content.
type Service struct {
	store      store.Store
	embeddings *embedding.Service
}

// NewService creates a new knowledge base Service.
func NewService(st store.Store, emb *embedding.Service) *Service {
	return &Service{store: st, embeddings: emb}
}

// Create validates and persists a new entry, then generates its embeddings
// in the background. The entry is returned immediately with embedding
// status pending.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.KnowledgeEntry, error) {
	now := time.Now().UTC()
	entry := &models.KnowledgeEntry{
		ID:              uuid.New(),
		IssueTitleEN:    strings.TrimSpace(params.IssueTitleEN),
		SolutionEN:      strings.TrimSpace(params.SolutionEN),
		IssueTitleSV:    strings.TrimSpace(params.IssueTitleSV),
		SolutionSV:      strings.TrimSpace(params.SolutionSV),
		Category:        strings.TrimSpace(params.Category),
		Status:          params.Status,
		EmbeddingStatus: models.EmbeddingStatusPending,
		Tags:            params.Tags,
		Metadata:        params.Metadata,
		CreatedBy:       params.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if entry.Status == "" {
		entry.Status = models.EntryStatusActive
	}

	if err := validate(entry); err != nil {
		return nil, err
	}

	if err := s.store.CreateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("creating entry: %w", err)
	}

	go s.runEmbedding(entry.ID)

	return entry, nil
}

// Update applies a partial update. When a content field actually changed,
// embeddings are regenerated in the background; metadata-only updates
// leave the index untouched.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*models.KnowledgeEntry, error) {
	entry, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	before := [4]string{entry.IssueTitleEN, entry.SolutionEN, entry.IssueTitleSV, entry.SolutionSV}

	applyString(&entry.IssueTitleEN, params.IssueTitleEN)
	applyString(&entry.SolutionEN, params.SolutionEN)
	applyString(&entry.IssueTitleSV, params.IssueTitleSV)
	applyString(&entry.SolutionSV, params.SolutionSV)
	applyString(&entry.Category, params.Category)
	if params.Status != nil {
		entry.Status = *params.Status
	}
	if params.Tags != nil {
		entry.Tags = params.Tags
	}
	if params.Metadata != nil {
		entry.Metadata = params.Metadata
	}

	if err := validate(entry); err != nil {
		return nil, err
	}

	contentChanged := before != [4]string{entry.IssueTitleEN, entry.SolutionEN, entry.IssueTitleSV, entry.SolutionSV}
	if contentChanged {
		entry.EmbeddingStatus = models.EmbeddingStatusPending
	}
	entry.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("updating entry: %w", err)
	}

	if contentChanged {
		go s.runEmbedding(entry.ID)
	}

	return entry, nil
}

// Delete removes the entry and its vectors. The row goes first; a vector
// delete failure is logged but does not resurrect the entry.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	entry, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}

	if err := s.embeddings.DeleteVectors(ctx, entry.VectorIDs); err != nil {
		slog.Error("failed to delete entry vectors", "entry_id", id, "error", err)
	}
	return nil
}

// Get returns one entry by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.KnowledgeEntry, error) {
	return s.store.GetEntry(ctx, id)
}

// List returns entries matching the filter plus the total count.
func (s *Service) List(ctx context.Context, filter store.EntryFilter) ([]*models.KnowledgeEntry, int, error) {
	return s.store.ListEntries(ctx, filter)
}

// Regenerate re-runs embedding generation synchronously and returns the
// stored vector ids.
func (s *Service) Regenerate(ctx context.Context, id uuid.UUID) ([]string, error) {
	return s.embeddings.ProcessEntry(ctx, id)
}

// ToggleStatus flips an entry between active and inactive.
func (s *Service) ToggleStatus(ctx context.Context, id uuid.UUID) (*models.KnowledgeEntry, error) {
	entry, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	if entry.Status == models.EntryStatusActive {
		entry.Status = models.EntryStatusInactive
	} else {
		entry.Status = models.EntryStatusActive
	}
	entry.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("toggling status: %w", err)
	}
	return entry, nil
}

// Search proxies to the embedding search service.
func (s *Service) Search(ctx context.Context, params embedding.SearchParams) ([]embedding.SearchResult, error) {
	return s.embeddings.Search(ctx, params)
}

// Stats returns aggregate entry counts.
func (s *Service) Stats(ctx context.Context) (*store.EntryStats, error) {
	return s.store.EntryStats(ctx)
}

// Categories returns the distinct categories with entry counts.
func (s *Service) Categories(ctx context.Context) ([]store.CategoryCount, error) {
	return s.store.ListCategories(ctx)
}

// runEmbedding generates embeddings in a background goroutine. It recovers
// from panics so a bad entry can never take the server down.
func (s *Service) runEmbedding(entryID uuid.UUID) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in runEmbedding", "error", r, "entry_id", entryID)
			if err := s.store.SetEntryEmbeddingStatus(ctx, entryID, models.EmbeddingStatusFailed); err != nil {
				slog.Error("failed to mark entry failed", "entry_id", entryID, "error", err)
			}
		}
	}()

	// errors are already logged and persisted as a failed status
	_, _ = s.embeddings.ProcessEntry(ctx, entryID)
}

// validate enforces the bilingual content rules: each language is all or
// nothing, and at least one language must be complete.
func validate(entry *models.KnowledgeEntry) error {
	if entry.Category == "" {
		return ErrMissingCategory
	}
	if entry.Status != models.EntryStatusActive && entry.Status != models.EntryStatusInactive {
		return ErrInvalidStatus
	}

	halfEN := (entry.IssueTitleEN != "") != (entry.SolutionEN != "")
	halfSV := (entry.IssueTitleSV != "") != (entry.SolutionSV != "")
	if halfEN || halfSV {
		return ErrPartialLanguage
	}
	if !entry.HasEnglish() && !entry.HasSwedish() {
		return ErrNoCompleteLanguage
	}
	return nil
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}
