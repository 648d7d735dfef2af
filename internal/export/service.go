package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/furqan899/safelift-ai/internal/cache"
	"github.com/furqan899/safelift-ai/internal/config"
	"github.com/furqan899/safelift-ai/internal/store"
	"github.com/furqan899/safelift-ai/pkg/models"
)

const (
	minDateRangeDays = 1
	maxDateRangeDays = 365

	defaultHistoryLimit = 10

	statusCacheTTL = 30 * time.Minute
)

// CreateParams holds the fields accepted when creating an export job.
type CreateParams struct {
	DataTypes           []string
	Format              string
	DateRangeDays       int
	IncludePersonalData bool
	CreatedBy           uuid.UUID
}

// DownloadInfo describes a completed export's downloadable file.
type DownloadInfo struct {
	URL       string    `json:"download_url"`
	FileSize  int64     `json:"file_size"`
	Format    string    `json:"format"`
	CreatedAt time.Time `json:"created_at"`
}

// Service owns the export job state machine: creation, execution, retry,
// download gating, and retention. Job config is immutable after creation.
type Service struct {
	store    store.Store
	cache    cache.Cache
	cfg      config.ExportConfig
	renderer Renderer
}

// NewService creates a new export Service. The renderer is the PDF
// capability selected at startup.
func NewService(st store.Store, ca cache.Cache, cfg config.ExportConfig, renderer Renderer) *Service {
	return &Service{store: st, cache: ca, cfg: cfg, renderer: renderer}
}

// Create validates and persists a new pending job. Nothing is written when
// validation fails.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.ExportJob, error) {
	if len(params.DataTypes) == 0 {
		return nil, ErrNoDataTypes
	}
	for _, dt := range params.DataTypes {
		if !models.ValidDataType(dt) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDataType, dt)
		}
	}
	if params.DateRangeDays < minDateRangeDays || params.DateRangeDays > maxDateRangeDays {
		return nil, ErrInvalidDateRange
	}

	now := time.Now().UTC()
	job := &models.ExportJob{
		ID:                  uuid.New(),
		DataTypes:           params.DataTypes,
		Format:              params.Format,
		DateRangeDays:       params.DateRangeDays,
		IncludePersonalData: params.IncludePersonalData,
		Status:              models.ExportStatusPending,
		CreatedBy:           params.CreatedBy,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.store.CreateExport(ctx, job); err != nil {
		return nil, fmt.Errorf("creating export: %w", err)
	}

	_ = s.cache.SetExportStatus(ctx, job.ID, models.ExportStatusPending, statusCacheTTL)
	slog.Info("export created", "export_id", job.ID, "data_types", job.DataTypes, "format", job.Format)
	return job, nil
}

// Run executes a pending job to completion or failure and returns its
// final state. Collector or exporter errors land in the job, not in the
// returned error; the error return covers missing jobs and illegal states.
func (s *Service) Run(ctx context.Context, jobID uuid.UUID) (*models.ExportJob, error) {
	job, err := s.store.GetExport(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.ExportStatusPending {
		return nil, fmt.Errorf("%w: export %s is %s", ErrNotRunnable, job.ID, job.Status)
	}

	slog.Info("starting export", "export_id", job.ID)
	s.setStatus(ctx, job.ID, models.ExportStatusProcessing, store.WithProgress(10))

	collectors := collectorsFor(s.store, job, time.Now().UTC())
	relPath, size, err := s.exporterFor(job.Format).Export(ctx, job, collectors)
	if err != nil {
		slog.Error("export failed", "export_id", job.ID, "error", err)
		s.setStatus(ctx, job.ID, models.ExportStatusFailed, store.WithErrorMessage(err.Error()))
		return s.store.GetExport(ctx, job.ID)
	}

	s.setStatus(ctx, job.ID, models.ExportStatusCompleted,
		store.WithProgress(100), store.WithFile(relPath, size))
	slog.Info("export completed", "export_id", job.ID, "file", relPath, "bytes", size)
	return s.store.GetExport(ctx, job.ID)
}

// RunAsync dispatches Run in a background goroutine with panic recovery.
func (s *Service) RunAsync(jobID uuid.UUID) {
	go func() {
		ctx := context.Background()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in export run", "error", r, "export_id", jobID)
				s.setStatus(ctx, jobID, models.ExportStatusFailed,
					store.WithErrorMessage(fmt.Sprintf("panic: %v", r)))
			}
		}()
		if _, err := s.Run(ctx, jobID); err != nil {
			slog.Error("export run aborted", "export_id", jobID, "error", err)
		}
	}()
}

// Retry moves a failed job back to pending with progress reset and the
// error message cleared. Any other state is rejected without mutation.
func (s *Service) Retry(ctx context.Context, jobID uuid.UUID) (*models.ExportJob, error) {
	job, err := s.store.GetExport(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.ExportStatusFailed {
		return nil, fmt.Errorf("%w: export %s is %s", ErrNotRetryable, job.ID, job.Status)
	}

	s.setStatus(ctx, job.ID, models.ExportStatusPending,
		store.WithProgress(0), store.WithErrorMessage(""))
	slog.Info("export retry initiated", "export_id", job.ID)
	return s.store.GetExport(ctx, job.ID)
}

// GetDownloadInfo gates file downloads: only a completed job with an
// existing file may be fetched.
func (s *Service) GetDownloadInfo(ctx context.Context, jobID uuid.UUID) (*DownloadInfo, error) {
	job, err := s.store.GetExport(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.ExportStatusCompleted || job.FilePath == "" {
		return nil, fmt.Errorf("%w: export %s is %s", ErrNotReady, job.ID, job.Status)
	}
	if _, err := os.Stat(filepath.Join(s.cfg.MediaRoot, job.FilePath)); err != nil {
		return nil, fmt.Errorf("%w: export %s", ErrFileMissing, job.ID)
	}

	return &DownloadInfo{
		URL:       "/media/" + filepath.ToSlash(job.FilePath),
		FileSize:  job.FileSize,
		Format:    job.Format,
		CreatedAt: job.CreatedAt,
	}, nil
}

// Get returns one job by id.
func (s *Service) Get(ctx context.Context, jobID uuid.UUID) (*models.ExportJob, error) {
	return s.store.GetExport(ctx, jobID)
}

// History returns a user's most recent jobs.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ExportJob, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.ListExports(ctx, userID, limit)
}

// Stats returns system-wide job counts by status.
func (s *Service) Stats(ctx context.Context) (*models.ExportStats, error) {
	return s.store.ExportStats(ctx)
}

// CleanupOldExports deletes completed jobs past the retention window along
// with their files. Pending and failed jobs are never purged.
func (s *Service) CleanupOldExports(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.RetentionDays)
	jobs, err := s.store.DeleteExpiredExports(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting expired exports: %w", err)
	}

	for _, job := range jobs {
		dir := filepath.Join(s.cfg.MediaRoot, jobRelDir(job.ID))
		if err := os.RemoveAll(dir); err != nil {
			slog.Error("failed to remove export directory", "export_id", job.ID, "error", err)
		}
	}
	if len(jobs) > 0 {
		slog.Info("purged old exports", "count", len(jobs))
	}
	return len(jobs), nil
}

// exporterFor maps the job format to an exporter, defaulting anything
// unrecognized to JSON.
func (s *Service) exporterFor(format string) Exporter {
	switch format {
	case models.ExportFormatCSV:
		return &CSVExporter{MediaRoot: s.cfg.MediaRoot}
	case models.ExportFormatPDF:
		return &PDFExporter{MediaRoot: s.cfg.MediaRoot, Renderer: s.renderer}
	default:
		return &JSONExporter{MediaRoot: s.cfg.MediaRoot}
	}
}

// setStatus writes the status to the store and mirrors it in the cache.
// Both writes are best effort; the store remains the source of truth.
func (s *Service) setStatus(ctx context.Context, jobID uuid.UUID, status string, opts ...store.ExportUpdateOption) {
	if err := s.store.UpdateExportStatus(ctx, jobID, status, opts...); err != nil {
		slog.Error("failed to update export status", "export_id", jobID, "status", status, "error", err)
	}
	_ = s.cache.SetExportStatus(ctx, jobID, status, statusCacheTTL)
}
