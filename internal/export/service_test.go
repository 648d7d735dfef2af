package export_test

import (
	"archive/zip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/furqan899/safelift-ai/internal/config"
	"github.com/furqan899/safelift-ai/internal/export"
	"github.com/furqan899/safelift-ai/internal/store"
	"github.com/furqan899/safelift-ai/pkg/models"
)

type fakeStore struct {
	store.Store

	mu            sync.Mutex
	exports       map[uuid.UUID]*models.ExportJob
	conversations []*models.Conversation
	entries       []*models.KnowledgeEntry
	escalations   []*models.Escalation
	metrics       []*models.DashboardMetric

	collectErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{exports: make(map[uuid.UUID]*models.ExportJob)}
}

func (f *fakeStore) CreateExport(_ context.Context, job *models.ExportJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	f.exports[job.ID] = &cp
	return nil
}

func (f *fakeStore) GetExport(_ context.Context, id uuid.UUID) (*models.ExportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.exports[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (f *fakeStore) UpdateExportStatus(_ context.Context, id uuid.UUID, status string, opts ...store.ExportUpdateOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.exports[id]
	if !ok {
		return store.ErrNotFound
	}

	var p store.ExportUpdate
	for _, opt := range opts {
		opt(&p)
	}

	job.Status = status
	if status == models.ExportStatusCompleted {
		now := time.Now().UTC()
		job.CompletedAt = &now
	} else {
		job.CompletedAt = nil
	}
	if p.Progress != nil {
		job.ProgressPercentage = *p.Progress
	}
	if p.ErrorMessage != nil {
		job.ErrorMessage = *p.ErrorMessage
	}
	if p.FilePath != nil {
		job.FilePath = *p.FilePath
	}
	if p.FileSize != nil {
		job.FileSize = *p.FileSize
	}
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeStore) DeleteExpiredExports(_ context.Context, cutoff time.Time) ([]*models.ExportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted []*models.ExportJob
	for id, job := range f.exports {
		if job.Status == models.ExportStatusCompleted && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			deleted = append(deleted, job)
			delete(f.exports, id)
		}
	}
	return deleted, nil
}

func (f *fakeStore) ForEachConversation(_ context.Context, start, end time.Time, fn func(*models.Conversation) error) error {
	if f.collectErr != nil {
		return f.collectErr
	}
	for _, c := range f.conversations {
		if c.CreatedAt.Before(start) || c.CreatedAt.After(end) {
			continue
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) ForEachEntry(_ context.Context, start, end time.Time, fn func(*models.KnowledgeEntry) error) error {
	for _, e := range f.entries {
		if e.CreatedAt.Before(start) || e.CreatedAt.After(end) {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) ForEachEscalation(_ context.Context, start, end time.Time, fn func(*models.Escalation) error) error {
	for _, e := range f.escalations {
		if e.CreatedAt.Before(start) || e.CreatedAt.After(end) {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) ForEachMetric(_ context.Context, since time.Time, fn func(*models.DashboardMetric) error) error {
	for _, m := range f.metrics {
		if m.Date.Before(since) {
			continue
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

type memCache struct {
	mu       sync.Mutex
	statuses map[uuid.UUID]string
}

func newMemCache() *memCache { return &memCache{statuses: make(map[uuid.UUID]string)} }

func (c *memCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *memCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *memCache) Delete(_ context.Context, _ string) error                         { return nil }
func (c *memCache) Ping(_ context.Context) error                                     { return nil }

func (c *memCache) SetExportStatus(_ context.Context, jobID uuid.UUID, status string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[jobID] = status
	return nil
}

func (c *memCache) GetExportStatus(_ context.Context, jobID uuid.UUID) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.statuses[jobID]
	return s, ok, nil
}

func (c *memCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

func newTestService(t *testing.T, fs *fakeStore) (*export.Service, string) {
	t.Helper()
	root := t.TempDir()
	cfg := config.ExportConfig{MediaRoot: root, RetentionDays: 30, PDFRenderer: "pdf"}
	return export.NewService(fs, newMemCache(), cfg, export.NewRenderer("pdf")), root
}

func seedData(fs *fakeStore) {
	now := time.Now().UTC()
	fs.conversations = []*models.Conversation{
		{
			ID:             uuid.New(),
			SessionID:      "sess-1",
			UserEmail:      "user@example.com",
			UserQuery:      "Kranen lyfter inte, vad gör jag?",
			AIResponse:     "Kontrollera hydraultrycket.",
			Status:         models.ConversationStatusResolved,
			Language:       "sv",
			ResponseTimeMS: 420,
			CreatedAt:      now.Add(-24 * time.Hour),
		},
		{
			ID:         uuid.New(),
			SessionID:  "sess-2",
			UserQuery:  "Brakes are squeaking",
			AIResponse: "Inspect the brake pads.",
			Status:     models.ConversationStatusActive,
			Language:   "en",
			CreatedAt:  now.Add(-48 * time.Hour),
		},
	}
	fs.escalations = []*models.Escalation{
		{
			ID:                 uuid.New(),
			CustomerName:       "Alex Larsson",
			CustomerEmail:      "alex@example.com",
			EquipmentID:        "SL-340",
			ProblemDescription: "Hydraulic leak near the main cylinder",
			Status:             models.EscalationStatusPending,
			Priority:           models.PriorityHigh,
			Language:           "en",
			CreatedAt:          now.Add(-12 * time.Hour),
		},
	}
	fs.metrics = []*models.DashboardMetric{
		{
			Date:               time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
			TotalConversations: 42,
			AvgResponseTime:    512.5,
		},
	}
}

func createJob(t *testing.T, svc *export.Service, params export.CreateParams) *models.ExportJob {
	t.Helper()
	if params.DateRangeDays == 0 {
		params.DateRangeDays = 30
	}
	if params.CreatedBy == uuid.Nil {
		params.CreatedBy = uuid.New()
	}
	job, err := svc.Create(context.Background(), params)
	require.NoError(t, err)
	return job
}

// --- Create ---

func TestCreate_Defaults(t *testing.T) {
	svc, _ := newTestService(t, newFakeStore())
	job := createJob(t, svc, export.CreateParams{
		DataTypes: []string{models.DataTypeConversations},
		Format:    models.ExportFormatCSV,
	})

	assert.Equal(t, models.ExportStatusPending, job.Status)
	assert.Zero(t, job.ProgressPercentage)
	assert.Nil(t, job.CompletedAt)
}

func TestCreate_InvalidDateRange(t *testing.T) {
	fs := newFakeStore()
	svc, _ := newTestService(t, fs)

	for _, days := range []int{0, -1, 366, 500} {
		_, err := svc.Create(context.Background(), export.CreateParams{
			DataTypes:     []string{models.DataTypeConversations},
			Format:        models.ExportFormatCSV,
			DateRangeDays: days,
			CreatedBy:     uuid.New(),
		})
		assert.ErrorIs(t, err, export.ErrInvalidDateRange, "days=%d", days)
	}
	assert.Empty(t, fs.exports, "validation failures must not persist a job")
}

func TestCreate_NoDataTypes(t *testing.T) {
	svc, _ := newTestService(t, newFakeStore())
	_, err := svc.Create(context.Background(), export.CreateParams{
		Format:        models.ExportFormatCSV,
		DateRangeDays: 30,
	})
	assert.ErrorIs(t, err, export.ErrNoDataTypes)
}

func TestCreate_UnknownDataType(t *testing.T) {
	svc, _ := newTestService(t, newFakeStore())
	_, err := svc.Create(context.Background(), export.CreateParams{
		DataTypes:     []string{"payments"},
		Format:        models.ExportFormatCSV,
		DateRangeDays: 30,
	})
	require.ErrorIs(t, err, export.ErrUnknownDataType)
	assert.Contains(t, err.Error(), "payments")
}

// --- Run: CSV ---

func TestRun_SingleTypeCSV(t *testing.T) {
	fs := newFakeStore()
	seedData(fs)
	svc, root := newTestService(t, fs)

	job := createJob(t, svc, export.CreateParams{
		DataTypes: []string{models.DataTypeConversations},
		Format:    models.ExportFormatCSV,
	})

	done, err := svc.Run(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusCompleted, done.Status)
	assert.Equal(t, 100, done.ProgressPercentage)
	require.NotNil(t, done.CompletedAt)
	assert.True(t, strings.HasSuffix(done.FilePath, ".csv"), "single data type yields one csv: %s", done.FilePath)
	assert.Positive(t, done.FileSize)

	content, err := os.ReadFile(filepath.Join(root, done.FilePath))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 3) // header + two conversations
	assert.True(t, strings.HasPrefix(lines[0], "id,session_id,user_query"))
	assert.NotContains(t, lines[0], "user_email", "personal data omitted by default")
}

func TestRun_MultiTypeCSVZip(t *testing.T) {
	fs := newFakeStore()
	seedData(fs)
	svc, root := newTestService(t, fs)

	job := createJob(t, svc, export.CreateParams{
		DataTypes: []string{models.DataTypeConversations, models.DataTypeEscalations},
		Format:    models.ExportFormatCSV,
	})

	done, err := svc.Run(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusCompleted, done.Status)
	assert.Equal(t, "export_"+job.ID.String()+".zip", filepath.Base(done.FilePath))

	zr, err := zip.OpenReader(filepath.Join(root, done.FilePath))
	require.NoError(t, err)
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, zf := range zr.File {
		names = append(names, zf.Name)
	}
	assert.ElementsMatch(t, []string{"conversations.csv", "escalations.csv"}, names)
}

func TestRun_EmptyDatasetPlaceholderHeader(t *testing.T) {
	fs := newFakeStore() // no data at all
	svc, root := newTestService(t, fs)

	job := createJob(t, svc, export.CreateParams{
		DataTypes: []string{models.DataTypeEscalations},
		Format:    models.ExportFormatCSV,
	})

	done, err := svc.Run(context.Background(), job.ID)
	require.NoError(t, err)
	content, err := os.ReadFile(filepath.Join(root, done.FilePath))
	require.NoError(t, err)
	assert.Equal(t, "empty", strings.TrimSpace(string(content)))
}

func TestRun_PIIIncludedOnRequest(t *testing.T) {
	fs := newFakeStore()
	seedData(fs)
	svc, root := newTestService(t, fs)

	job := createJob(t, svc, export.CreateParams{
		DataTypes:           []string{models.DataTypeEscalations},
		Format:              models.ExportFormatCSV,
		IncludePersonalData: true,
	})

	done, err := svc.Run(context.Background(), job.ID)
	require.NoError(t, err)
	content, err := os.ReadFile(filepath.Join(root, done.FilePath))
	require.NoError(t, err)
	assert.Contains(t, string(content), "customer_email")
	assert.Contains(t, string(content), "alex@example.com")
}

// --- Run: JSON ---

func TestRun_JSON(t *testing.T) {
	fs := newFakeStore()
	seedData(fs)
	svc, root := newTestService(t, fs)

	job := createJob(t, svc, export.CreateParams{
		DataTypes: []string{models.DataTypeConversations, models.DataTypeAnalytics},
		Format:    models.ExportFormatJSON,
	})

	done, err := svc.Run(context.Background(), job.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(done.FilePath, ".json"))

	content, err := os.ReadFile(filepath.Join(root, done.FilePath))
	require.NoError(t, err)

	var parsed map[string][]map[string]any
	require.NoError(t, json.Unmarshal(content, &parsed))
	require.Len(t, parsed["conversations"], 2)
	require.Len(t, parsed["analytics"], 1)
	assert.Equal(t, float64(42), parsed["analytics"][0]["total_conversations"])

	assert.Contains(t, string(content), "vad gör jag", "non-ASCII preserved literally")
	assert.Contains(t, string(content), "\n  ", "pretty printed")
}

func TestRun_UnknownFormatDefaultsToJSON(t *testing.T) {
	fs := newFakeStore()
	seedData(fs)
	svc, _ := newTestService(t, fs)

	job := createJob(t, svc, export.CreateParams{
		DataTypes: []string{models.DataTypeConversations},
		Format:    "parquet",
	})

	done, err := svc.Run(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusCompleted, done.Status)
	assert.True(t, strings.HasSuffix(done.FilePath, ".json"))
}

// --- Run: PDF ---

func TestRun_PDF(t *testing.T) {
	fs := newFakeStore()
	seedData(fs)
	svc, root := newTestService(t, fs)

	job := createJob(t, svc, export.CreateParams{
		DataTypes: []string{models.DataTypeConversations},
		Format:    models.ExportFormatPDF,
	})

	done, err := svc.Run(context.Background(), job.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(done.FilePath, ".pdf"))

	content, err := os.ReadFile(filepath.Join(root, done.FilePath))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "%PDF"), "real renderer writes a PDF document")
}

func TestRun_PDFTextFallback(t *testing.T) {
	fs := newFakeStore()
	seedData(fs)
	root := t.TempDir()
	cfg := config.ExportConfig{MediaRoot: root, RetentionDays: 30, PDFRenderer: "text"}
	svc := export.NewService(fs, newMemCache(), cfg, export.NewRenderer("text"))

	job := createJob(t, svc, export.CreateParams{
		DataTypes: []string{models.DataTypeConversations, models.DataTypeEscalations},
		Format:    models.ExportFormatPDF,
	})

	done, err := svc.Run(context.Background(), job.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(done.FilePath, ".pdf"), "fallback keeps the .pdf extension")

	content, err := os.ReadFile(filepath.Join(root, done.FilePath))
	require.NoError(t, err)
	assert.Contains(t, string(content), "== CONVERSATIONS (2 records) ==")
	assert.Contains(t, string(content), "== ESCALATIONS (1 records) ==")
}

// --- Run: state machine ---

func TestRun_CollectorFailure(t *testing.T) {
	fs := newFakeStore()
	fs.collectErr = assert.AnError
	svc, _ := newTestService(t, fs)

	job := createJob(t, svc, export.CreateParams{
		DataTypes: []string{models.DataTypeConversations},
		Format:    models.ExportFormatCSV,
	})

	done, err := svc.Run(context.Background(), job.ID)
	require.NoError(t, err, "run failures land in the job, not the error return")
	assert.Equal(t, models.ExportStatusFailed, done.Status)
	assert.Contains(t, done.ErrorMessage, "conversations")
	assert.Equal(t, 10, done.ProgressPercentage, "progress is left as-is on failure")
	assert.Nil(t, done.CompletedAt)
	assert.Empty(t, done.FilePath)
}

func TestRun_OnlyFromPending(t *testing.T) {
	fs := newFakeStore()
	seedData(fs)
	svc, _ := newTestService(t, fs)

	job := createJob(t, svc, export.CreateParams{
		DataTypes: []string{models.DataTypeConversations},
		Format:    models.ExportFormatCSV,
	})

	_, err := svc.Run(context.Background(), job.ID)
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), job.ID)
	assert.ErrorIs(t, err, export.ErrNotRunnable)
}

func TestRun_NotFound(t *testing.T) {
	svc, _ := newTestService(t, newFakeStore())
	_, err := svc.Run(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCompletedAtTracksStatus(t *testing.T) {
	fs := newFakeStore()
	fs.collectErr = assert.AnError
	svc, _ := newTestService(t, fs)

	job := createJob(t, svc, export.CreateParams{
		DataTypes: []string{models.DataTypeConversations},
		Format:    models.ExportFormatCSV,
	})

	failed, err := svc.Run(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Nil(t, failed.CompletedAt)

	fs.collectErr = nil
	_, err = svc.Retry(context.Background(), job.ID)
	require.NoError(t, err)
	done, err := svc.Run(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)
}

// --- Retry ---

func TestRetry_FromFailed(t *testing.T) {
	fs := newFakeStore()
	fs.collectErr = assert.AnError
	svc, _ := newTestService(t, fs)

	job := createJob(t, svc, export.CreateParams{
		DataTypes: []string{models.DataTypeConversations},
		Format:    models.ExportFormatCSV,
	})
	_, err := svc.Run(context.Background(), job.ID)
	require.NoError(t, err)

	retried, err := svc.Retry(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusPending, retried.Status)
	assert.Zero(t, retried.ProgressPercentage)
	assert.Empty(t, retried.ErrorMessage)
}

func TestRetry_NotRetryable(t *testing.T) {
	fs := newFakeStore()
	seedData(fs)
	svc, _ := newTestService(t, fs)

	job := createJob(t, svc, export.CreateParams{
		DataTypes: []string{models.DataTypeConversations},
		Format:    models.ExportFormatCSV,
	})

	// pending
	_, err := svc.Retry(context.Background(), job.ID)
	assert.ErrorIs(t, err, export.ErrNotRetryable)

	// completed
	done, err := svc.Run(context.Background(), job.ID)
	require.NoError(t, err)
	_, err = svc.Retry(context.Background(), job.ID)
	assert.ErrorIs(t, err, export.ErrNotRetryable)

	unchanged, err := svc.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, done.Status, unchanged.Status)
	assert.Equal(t, done.ProgressPercentage, unchanged.ProgressPercentage)
	assert.Equal(t, done.FilePath, unchanged.FilePath)
}

// --- Download gating ---

func TestGetDownloadInfo(t *testing.T) {
	fs := newFakeStore()
	seedData(fs)
	svc, _ := newTestService(t, fs)

	job := createJob(t, svc, export.CreateParams{
		DataTypes: []string{models.DataTypeConversations},
		Format:    models.ExportFormatCSV,
	})

	// pending job is not ready
	_, err := svc.GetDownloadInfo(context.Background(), job.ID)
	assert.ErrorIs(t, err, export.ErrNotReady)

	done, err := svc.Run(context.Background(), job.ID)
	require.NoError(t, err)

	info, err := svc.GetDownloadInfo(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, "/media/"+filepath.ToSlash(done.FilePath), info.URL)
	assert.Equal(t, done.FileSize, info.FileSize)
	assert.Equal(t, models.ExportFormatCSV, info.Format)
}

func TestGetDownloadInfo_FileMissing(t *testing.T) {
	fs := newFakeStore()
	seedData(fs)
	svc, root := newTestService(t, fs)

	job := createJob(t, svc, export.CreateParams{
		DataTypes: []string{models.DataTypeConversations},
		Format:    models.ExportFormatCSV,
	})
	done, err := svc.Run(context.Background(), job.ID)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, done.FilePath)))

	_, err = svc.GetDownloadInfo(context.Background(), job.ID)
	assert.ErrorIs(t, err, export.ErrFileMissing)
}

func TestGetDownloadInfo_FailedJob(t *testing.T) {
	fs := newFakeStore()
	fs.collectErr = assert.AnError
	svc, _ := newTestService(t, fs)

	job := createJob(t, svc, export.CreateParams{
		DataTypes: []string{models.DataTypeConversations},
		Format:    models.ExportFormatCSV,
	})
	_, err := svc.Run(context.Background(), job.ID)
	require.NoError(t, err)

	_, err = svc.GetDownloadInfo(context.Background(), job.ID)
	assert.ErrorIs(t, err, export.ErrNotReady)
}

// --- Retention ---

func TestCleanupOldExports(t *testing.T) {
	fs := newFakeStore()
	seedData(fs)
	svc, root := newTestService(t, fs)

	oldJob := createJob(t, svc, export.CreateParams{
		DataTypes: []string{models.DataTypeConversations},
		Format:    models.ExportFormatCSV,
	})
	done, err := svc.Run(context.Background(), oldJob.ID)
	require.NoError(t, err)

	// age the job past the retention window
	fs.mu.Lock()
	old := time.Now().UTC().AddDate(0, 0, -31)
	fs.exports[oldJob.ID].CompletedAt = &old
	fs.mu.Unlock()

	// a failed job past the window must survive the sweep
	failedJob := createJob(t, svc, export.CreateParams{
		DataTypes: []string{models.DataTypeConversations},
		Format:    models.ExportFormatCSV,
	})
	fs.mu.Lock()
	fs.exports[failedJob.ID].Status = models.ExportStatusFailed
	fs.mu.Unlock()

	count, err := svc.CleanupOldExports(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = svc.Get(context.Background(), oldJob.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.Get(context.Background(), failedJob.ID)
	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, filepath.Dir(done.FilePath)))
	assert.True(t, os.IsNotExist(err), "export directory removed with the job")
}
