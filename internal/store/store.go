package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/furqan899/safelift-ai/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error

	CreateEntry(ctx context.Context, entry *models.KnowledgeEntry) error
	GetEntry(ctx context.Context, id uuid.UUID) (*models.KnowledgeEntry, error)
	UpdateEntry(ctx context.Context, entry *models.KnowledgeEntry) error
	DeleteEntry(ctx context.Context, id uuid.UUID) error
	ListEntries(ctx context.Context, filter EntryFilter) ([]*models.KnowledgeEntry, int, error)
	SetEntryEmbeddingStatus(ctx context.Context, id uuid.UUID, status string) error
	MarkEntryProcessed(ctx context.Context, id uuid.UUID, vectorIDs []string, processedAt time.Time) error
	EntryStats(ctx context.Context) (*EntryStats, error)
	ListCategories(ctx context.Context) ([]CategoryCount, error)

	CreateExport(ctx context.Context, job *models.ExportJob) error
	GetExport(ctx context.Context, id uuid.UUID) (*models.ExportJob, error)
	ListExports(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ExportJob, error)
	UpdateExportStatus(ctx context.Context, id uuid.UUID, status string, opts ...ExportUpdateOption) error
	DeleteExpiredExports(ctx context.Context, cutoff time.Time) ([]*models.ExportJob, error)
	ExportStats(ctx context.Context) (*models.ExportStats, error)

	CreateConversation(ctx context.Context, c *models.Conversation) error
	CreateEscalation(ctx context.Context, e *models.Escalation) error
	UpsertDashboardMetric(ctx context.Context, m *models.DashboardMetric) error
	LatestMetric(ctx context.Context) (*models.DashboardMetric, error)

	// Streaming row access for export collectors. The callback is invoked
	// once per row in creation order; returning an error stops iteration
	// and propagates the error.
	ForEachConversation(ctx context.Context, start, end time.Time, fn func(*models.Conversation) error) error
	ForEachEntry(ctx context.Context, start, end time.Time, fn func(*models.KnowledgeEntry) error) error
	ForEachEscalation(ctx context.Context, start, end time.Time, fn func(*models.Escalation) error) error
	ForEachMetric(ctx context.Context, since time.Time, fn func(*models.DashboardMetric) error) error
}

// EntryFilter narrows ListEntries results. Zero values mean no constraint.
type EntryFilter struct {
	Status          string
	EmbeddingStatus string
	Category        string
	Query           string
	Page            int
	Limit           int
}

// EntryStats summarizes knowledge base entries for the stats endpoint.
type EntryStats struct {
	Total             int `json:"total"`
	Active            int `json:"active"`
	Inactive          int `json:"inactive"`
	EmbeddingsPending int `json:"embeddings_pending"`
	EmbeddingsFailed  int `json:"embeddings_failed"`
	EmbeddingsDone    int `json:"embeddings_completed"`
}

// CategoryCount is one category with its entry count.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// ExportUpdate carries the optional fields of an export status write. Nil
// fields are left untouched.
type ExportUpdate struct {
	Progress     *int
	ErrorMessage *string
	FilePath     *string
	FileSize     *int64
}

// ExportUpdateOption customizes an export status update.
type ExportUpdateOption func(*ExportUpdate)

// WithProgress sets the progress percentage alongside the status write.
func WithProgress(pct int) ExportUpdateOption {
	return func(p *ExportUpdate) {
		p.Progress = &pct
	}
}

// WithErrorMessage records (or, with an empty string, clears) the error
// message alongside the status write.
func WithErrorMessage(msg string) ExportUpdateOption {
	return func(p *ExportUpdate) {
		p.ErrorMessage = &msg
	}
}

// WithFile records the produced file path and size.
func WithFile(path string, size int64) ExportUpdateOption {
	return func(p *ExportUpdate) {
		p.FilePath = &path
		p.FileSize = &size
	}
}
