package store_test

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/furqan899/safelift-ai/internal/store"
	"github.com/furqan899/safelift-ai/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// seededAdminID matches the admin user inserted by the init migration.
var seededAdminID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool + cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("safelift_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Run migrations
	err = store.RunMigrations(connStr, migrationsDir())
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

func testEntry() *models.KnowledgeEntry {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.KnowledgeEntry{
		ID:              uuid.New(),
		IssueTitleEN:    "Crane does not lift",
		SolutionEN:      "Check the hydraulic fluid level.",
		IssueTitleSV:    "Kranen lyfter inte",
		SolutionSV:      "Kontrollera hydraulvätskenivån.",
		Category:        "hydraulics",
		Status:          models.EntryStatusActive,
		EmbeddingStatus: models.EmbeddingStatusPending,
		VectorIDs:       []string{},
		Tags:            []string{"crane", "hydraulics"},
		Metadata:        map[string]any{"source": "manual"},
		CreatedBy:       seededAdminID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func testExport(dataTypes ...string) *models.ExportJob {
	if len(dataTypes) == 0 {
		dataTypes = []string{models.DataTypeConversations}
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.ExportJob{
		ID:            uuid.New(),
		DataTypes:     dataTypes,
		Format:        "csv",
		DateRangeDays: 30,
		Status:        models.ExportStatusPending,
		CreatedBy:     seededAdminID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// --- Users ---

func TestGetUser_SeededAdmin(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	user, err := s.GetUser(context.Background(), seededAdminID)
	require.NoError(t, err)
	assert.Equal(t, "admin@safelift.local", user.Email)
	assert.True(t, user.IsAdmin)
}

// --- API Keys ---

func TestAPIKey_CreateAndGetByPrefix(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	key := &models.APIKey{
		ID:        uuid.New(),
		UserID:    seededAdminID,
		Name:      "test-key",
		KeyHash:   "bcrypt-hash-here",
		KeyPrefix: "slk_abcd",
		Scopes:    []string{"read", "admin"},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.CreateAPIKey(ctx, key)
	require.NoError(t, err)

	keys, err := s.GetAPIKeyByPrefix(ctx, "slk_abcd")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, key.ID, keys[0].ID)
	assert.Equal(t, []string{"read", "admin"}, keys[0].Scopes)
}

func TestAPIKey_Revoke(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	key := &models.APIKey{
		ID:        uuid.New(),
		UserID:    seededAdminID,
		Name:      "doomed",
		KeyHash:   "hash",
		KeyPrefix: "slk_dead",
		Scopes:    []string{"read"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateAPIKey(ctx, key))

	require.NoError(t, s.RevokeAPIKey(ctx, key.ID))

	// revoked keys disappear from prefix lookup
	keys, err := s.GetAPIKeyByPrefix(ctx, "slk_dead")
	require.NoError(t, err)
	assert.Empty(t, keys)

	// a second revoke finds nothing
	assert.ErrorIs(t, s.RevokeAPIKey(ctx, key.ID), store.ErrNotFound)
}

// --- Knowledge Entries ---

func TestEntry_CreateGetDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	entry := testEntry()
	require.NoError(t, s.CreateEntry(ctx, entry))

	got, err := s.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.IssueTitleEN, got.IssueTitleEN)
	assert.Equal(t, entry.IssueTitleSV, got.IssueTitleSV)
	assert.Equal(t, []string{"crane", "hydraulics"}, got.Tags)
	assert.Equal(t, "manual", got.Metadata["source"])
	assert.Equal(t, models.EmbeddingStatusPending, got.EmbeddingStatus)

	require.NoError(t, s.DeleteEntry(ctx, entry.ID))
	_, err = s.GetEntry(ctx, entry.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntry_ListFilters(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	active := testEntry()
	require.NoError(t, s.CreateEntry(ctx, active))

	inactive := testEntry()
	inactive.ID = uuid.New()
	inactive.Status = models.EntryStatusInactive
	inactive.Category = "electrical"
	inactive.IssueTitleEN = "Remote control unresponsive"
	require.NoError(t, s.CreateEntry(ctx, inactive))

	entries, total, err := s.ListEntries(ctx, store.EntryFilter{Status: models.EntryStatusActive})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, active.ID, entries[0].ID)

	entries, total, err = s.ListEntries(ctx, store.EntryFilter{Query: "remote"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, inactive.ID, entries[0].ID)

	_, total, err = s.ListEntries(ctx, store.EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestEntry_MarkProcessed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	entry := testEntry()
	require.NoError(t, s.CreateEntry(ctx, entry))

	require.NoError(t, s.SetEntryEmbeddingStatus(ctx, entry.ID, models.EmbeddingStatusProcessing))

	processedAt := time.Now().UTC().Truncate(time.Microsecond)
	vectorIDs := []string{entry.ID.String() + "_en", entry.ID.String() + "_sv"}
	require.NoError(t, s.MarkEntryProcessed(ctx, entry.ID, vectorIDs, processedAt))

	got, err := s.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EmbeddingStatusCompleted, got.EmbeddingStatus)
	assert.Equal(t, vectorIDs, got.VectorIDs)
	require.NotNil(t, got.ProcessedAt)
	assert.WithinDuration(t, processedAt, *got.ProcessedAt, time.Second)
}

func TestEntry_StatsAndCategories(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	first := testEntry()
	require.NoError(t, s.CreateEntry(ctx, first))

	second := testEntry()
	second.ID = uuid.New()
	second.Status = models.EntryStatusInactive
	second.Category = "electrical"
	second.EmbeddingStatus = models.EmbeddingStatusFailed
	require.NoError(t, s.CreateEntry(ctx, second))

	stats, err := s.EntryStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Inactive)
	assert.Equal(t, 1, stats.EmbeddingsPending)
	assert.Equal(t, 1, stats.EmbeddingsFailed)

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "electrical", cats[0].Category)
	assert.Equal(t, "hydraulics", cats[1].Category)
}

// --- Export Jobs ---

func TestExport_StatusLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	job := testExport()
	require.NoError(t, s.CreateExport(ctx, job))

	require.NoError(t, s.UpdateExportStatus(ctx, job.ID, models.ExportStatusProcessing,
		store.WithProgress(10)))

	got, err := s.GetExport(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusProcessing, got.Status)
	assert.Equal(t, 10, got.ProgressPercentage)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, s.UpdateExportStatus(ctx, job.ID, models.ExportStatusCompleted,
		store.WithProgress(100), store.WithFile("exports/x/conversations.csv", 512)))

	got, err = s.GetExport(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusCompleted, got.Status)
	assert.Equal(t, 100, got.ProgressPercentage)
	assert.Equal(t, "exports/x/conversations.csv", got.FilePath)
	assert.Equal(t, int64(512), got.FileSize)
	require.NotNil(t, got.CompletedAt)

	// moving out of completed clears completed_at
	require.NoError(t, s.UpdateExportStatus(ctx, job.ID, models.ExportStatusFailed,
		store.WithErrorMessage("index rebuild required")))

	got, err = s.GetExport(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "index rebuild required", got.ErrorMessage)
	assert.Nil(t, got.CompletedAt)
}

func TestExport_ListByUser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		job := testExport()
		job.CreatedAt = job.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.CreateExport(ctx, job))
	}

	jobs, err := s.ListExports(ctx, seededAdminID, 2)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	// newest first
	assert.True(t, jobs[0].CreatedAt.After(jobs[1].CreatedAt))

	jobs, err = s.ListExports(ctx, uuid.New(), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestExport_DeleteExpired(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	completed := testExport()
	require.NoError(t, s.CreateExport(ctx, completed))
	require.NoError(t, s.UpdateExportStatus(ctx, completed.ID, models.ExportStatusCompleted))

	failed := testExport()
	require.NoError(t, s.CreateExport(ctx, failed))
	require.NoError(t, s.UpdateExportStatus(ctx, failed.ID, models.ExportStatusFailed))

	// cutoff in the future sweeps the completed job only
	deleted, err := s.DeleteExpiredExports(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, completed.ID, deleted[0].ID)

	_, err = s.GetExport(ctx, completed.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetExport(ctx, failed.ID)
	assert.NoError(t, err)
}

func TestExport_Stats(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	first := testExport()
	require.NoError(t, s.CreateExport(ctx, first))

	second := testExport()
	require.NoError(t, s.CreateExport(ctx, second))
	require.NoError(t, s.UpdateExportStatus(ctx, second.ID, models.ExportStatusCompleted))

	stats, err := s.ExportStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Completed)
}

// --- Streaming row access ---

func TestForEachConversation_WindowAndOrder(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond).Add(-48 * time.Hour)
	for i := 0; i < 3; i++ {
		c := &models.Conversation{
			ID:         uuid.New(),
			SessionID:  "sess-1",
			UserQuery:  "How do I reset the crane?",
			AIResponse: "Hold the reset button for five seconds.",
			Status:     "resolved",
			Language:   "en",
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
			UpdatedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, s.CreateConversation(ctx, c))
	}

	// window covering only the first two rows
	var seen []time.Time
	err := s.ForEachConversation(ctx, base, base.Add(90*time.Minute), func(c *models.Conversation) error {
		seen = append(seen, c.CreatedAt)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.True(t, seen[0].Before(seen[1]), "rows must arrive in creation order")
}

func TestDashboardMetric_UpsertAndLatest(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	m := &models.DashboardMetric{
		Date:               day,
		TotalConversations: 42,
		EscalatedCases:     3,
		AvgResponseTime:    1.8,
	}
	require.NoError(t, s.UpsertDashboardMetric(ctx, m))

	// same day upserts in place
	m.TotalConversations = 50
	require.NoError(t, s.UpsertDashboardMetric(ctx, m))

	got, err := s.LatestMetric(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, got.TotalConversations)
	assert.Equal(t, day, got.Date.UTC())
}
