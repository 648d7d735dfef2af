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
	"github.com/furqan899/safelift-ai/internal/export"
	"github.com/furqan899/safelift-ai/internal/store"
	"github.com/furqan899/safelift-ai/pkg/models"
)

const defaultDateRangeDays = 30

// ExportService is the export surface the handlers depend on.
type ExportService interface {
	Create(ctx context.Context, params export.CreateParams) (*models.ExportJob, error)
	RunAsync(jobID uuid.UUID)
	Retry(ctx context.Context, jobID uuid.UUID) (*models.ExportJob, error)
	Get(ctx context.Context, jobID uuid.UUID) (*models.ExportJob, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ExportJob, error)
	GetDownloadInfo(ctx context.Context, jobID uuid.UUID) (*export.DownloadInfo, error)
	Stats(ctx context.Context) (*models.ExportStats, error)
}

// NewCreateExportHandler returns the handler for POST /api/v1/exports.
// The job is created pending and executed in the background.
func NewCreateExportHandler(svc ExportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user identity", nil)
			return
		}

		var req struct {
			DataTypes           []string `json:"data_types"`
			Format              string   `json:"format"`
			DateRangeDays       int      `json:"date_range_days"`
			IncludePersonalData bool     `json:"include_personal_data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.DateRangeDays == 0 {
			req.DateRangeDays = defaultDateRangeDays
		}

		job, err := svc.Create(r.Context(), export.CreateParams{
			DataTypes:           req.DataTypes,
			Format:              req.Format,
			DateRangeDays:       req.DateRangeDays,
			IncludePersonalData: req.IncludePersonalData,
			CreatedBy:           userID,
		})
		if err != nil {
			exportError(w, err)
			return
		}

		svc.RunAsync(job.ID)
		response.Accepted(w, job)
	}
}

// NewGetExportHandler returns the handler for GET /api/v1/exports/{exportID}.
func NewGetExportHandler(svc ExportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := exportID(w, r)
		if !ok {
			return
		}
		job, err := svc.Get(r.Context(), id)
		if err != nil {
			exportError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewListExportsHandler returns the handler for GET /api/v1/exports, the
// calling user's recent jobs.
func NewListExportsHandler(svc ExportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user identity", nil)
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		jobs, err := svc.History(r.Context(), userID, limit)
		if err != nil {
			exportError(w, err)
			return
		}
		response.JSON(w, jobs)
	}
}

// NewRetryExportHandler returns the handler for
// POST /api/v1/exports/{exportID}/retry.
func NewRetryExportHandler(svc ExportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := exportID(w, r)
		if !ok {
			return
		}
		job, err := svc.Retry(r.Context(), id)
		if err != nil {
			exportError(w, err)
			return
		}

		svc.RunAsync(job.ID)
		response.Accepted(w, job)
	}
}

// NewDownloadInfoHandler returns the handler for
// GET /api/v1/exports/{exportID}/download.
func NewDownloadInfoHandler(svc ExportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := exportID(w, r)
		if !ok {
			return
		}
		info, err := svc.GetDownloadInfo(r.Context(), id)
		if err != nil {
			exportError(w, err)
			return
		}
		response.JSON(w, info)
	}
}

// NewExportStatsHandler returns the handler for GET /api/v1/exports/stats.
func NewExportStatsHandler(svc ExportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			exportError(w, err)
			return
		}
		response.JSON(w, stats)
	}
}

func exportID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "exportID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "exportID must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

// exportError maps export errors onto the response envelope. State
// conflicts get distinct 409 codes so clients can tell them apart.
func exportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, export.ErrNoDataTypes),
		errors.Is(err, export.ErrUnknownDataType),
		errors.Is(err, export.ErrInvalidDateRange):
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Export not found", nil)
	case errors.Is(err, export.ErrNotRetryable):
		response.Error(w, http.StatusConflict, "NOT_RETRYABLE", err.Error(), nil)
	case errors.Is(err, export.ErrNotRunnable):
		response.Error(w, http.StatusConflict, "NOT_RUNNABLE", err.Error(), nil)
	case errors.Is(err, export.ErrNotReady):
		response.Error(w, http.StatusConflict, "NOT_READY", err.Error(), nil)
	case errors.Is(err, export.ErrFileMissing):
		response.Error(w, http.StatusConflict, "FILE_MISSING", err.Error(), nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
