package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/furqan899/safelift-ai/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, full_name, is_admin, created_at, updated_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// --- API Keys ---

const apiKeyColumns = `id, user_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at`

func scanAPIKey(row pgx.Row) (*models.APIKey, error) {
	var k models.APIKey
	err := row.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
		&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.UserID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys
		 WHERE user_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Knowledge Entries ---

const entryColumns = `id, issue_title_en, solution_en, issue_title_sv, solution_sv, category, status,
	embedding_status, vector_ids, tags, metadata, created_by, created_at, updated_at, processed_at`

func scanEntry(row pgx.Row) (*models.KnowledgeEntry, error) {
	var e models.KnowledgeEntry
	err := row.Scan(&e.ID, &e.IssueTitleEN, &e.SolutionEN, &e.IssueTitleSV, &e.SolutionSV,
		&e.Category, &e.Status, &e.EmbeddingStatus, &e.VectorIDs, &e.Tags, &e.Metadata,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt, &e.ProcessedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *PostgresStore) CreateEntry(ctx context.Context, entry *models.KnowledgeEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO knowledge_entries (id, issue_title_en, solution_en, issue_title_sv, solution_sv,
		   category, status, embedding_status, vector_ids, tags, metadata, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		entry.ID, entry.IssueTitleEN, entry.SolutionEN, entry.IssueTitleSV, entry.SolutionSV,
		entry.Category, entry.Status, entry.EmbeddingStatus, entry.VectorIDs, entry.Tags,
		entry.Metadata, entry.CreatedBy, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetEntry(ctx context.Context, id uuid.UUID) (*models.KnowledgeEntry, error) {
	e, err := scanEntry(s.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM knowledge_entries WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

// UpdateEntry persists content, category, status, tags and metadata.
// Embedding bookkeeping fields are written only through
// SetEntryEmbeddingStatus and MarkEntryProcessed.
func (s *PostgresStore) UpdateEntry(ctx context.Context, entry *models.KnowledgeEntry) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE knowledge_entries SET issue_title_en = $2, solution_en = $3, issue_title_sv = $4,
		   solution_sv = $5, category = $6, status = $7, tags = $8, metadata = $9, updated_at = NOW()
		 WHERE id = $1`,
		entry.ID, entry.IssueTitleEN, entry.SolutionEN, entry.IssueTitleSV, entry.SolutionSV,
		entry.Category, entry.Status, entry.Tags, entry.Metadata)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM knowledge_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListEntries(ctx context.Context, filter EntryFilter) ([]*models.KnowledgeEntry, int, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.EmbeddingStatus != "" {
		conditions = append(conditions, fmt.Sprintf("embedding_status = $%d", argIdx))
		args = append(args, filter.EmbeddingStatus)
		argIdx++
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, filter.Category)
		argIdx++
	}
	if filter.Query != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(issue_title_en ILIKE $%d OR issue_title_sv ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+filter.Query+"%")
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM knowledge_entries WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(`SELECT %s FROM knowledge_entries WHERE %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, entryColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.KnowledgeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (s *PostgresStore) SetEntryEmbeddingStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE knowledge_entries SET embedding_status = $2, updated_at = NOW() WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("set entry embedding status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkEntryProcessed writes vector ids, completed status and processed_at
// in one statement so a successful embedding run is recorded atomically.
func (s *PostgresStore) MarkEntryProcessed(ctx context.Context, id uuid.UUID, vectorIDs []string, processedAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE knowledge_entries SET vector_ids = $2, embedding_status = $3,
		   processed_at = $4, updated_at = NOW()
		 WHERE id = $1`,
		id, vectorIDs, models.EmbeddingStatusCompleted, processedAt)
	if err != nil {
		return fmt.Errorf("mark entry processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) EntryStats(ctx context.Context) (*EntryStats, error) {
	var st EntryStats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		   COUNT(*) FILTER (WHERE status = 'active'),
		   COUNT(*) FILTER (WHERE status = 'inactive'),
		   COUNT(*) FILTER (WHERE embedding_status = 'pending'),
		   COUNT(*) FILTER (WHERE embedding_status = 'failed'),
		   COUNT(*) FILTER (WHERE embedding_status = 'completed')
		 FROM knowledge_entries`,
	).Scan(&st.Total, &st.Active, &st.Inactive, &st.EmbeddingsPending, &st.EmbeddingsFailed, &st.EmbeddingsDone)
	if err != nil {
		return nil, fmt.Errorf("entry stats: %w", err)
	}
	return &st, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]CategoryCount, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT category, COUNT(*) FROM knowledge_entries GROUP BY category ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// --- Export Jobs ---

const exportColumns = `id, data_types, format, date_range_days, include_personal_data, status,
	progress_percentage, file_path, file_size, error_message, created_by, created_at, updated_at, completed_at`

func scanExport(row pgx.Row) (*models.ExportJob, error) {
	var j models.ExportJob
	err := row.Scan(&j.ID, &j.DataTypes, &j.Format, &j.DateRangeDays, &j.IncludePersonalData,
		&j.Status, &j.ProgressPercentage, &j.FilePath, &j.FileSize, &j.ErrorMessage,
		&j.CreatedBy, &j.CreatedAt, &j.UpdatedAt, &j.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *PostgresStore) CreateExport(ctx context.Context, job *models.ExportJob) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO exports (id, data_types, format, date_range_days, include_personal_data,
		   status, progress_percentage, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, job.DataTypes, job.Format, job.DateRangeDays, job.IncludePersonalData,
		job.Status, job.ProgressPercentage, job.CreatedBy, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetExport(ctx context.Context, id uuid.UUID) (*models.ExportJob, error) {
	j, err := scanExport(s.pool.QueryRow(ctx,
		`SELECT `+exportColumns+` FROM exports WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get export: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) ListExports(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ExportJob, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+exportColumns+` FROM exports WHERE created_by = $1
		 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ExportJob
	for rows.Next() {
		j, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// UpdateExportStatus writes the job status plus any fields carried by opts.
// completed_at is derived from the status in the same statement, which keeps
// the completed_at <=> completed invariant regardless of caller ordering.
func (s *PostgresStore) UpdateExportStatus(ctx context.Context, id uuid.UUID, status string, opts ...ExportUpdateOption) error {
	var p ExportUpdate
	for _, opt := range opts {
		opt(&p)
	}

	sets := []string{
		"status = $2",
		"updated_at = NOW()",
		"completed_at = CASE WHEN $2 = 'completed' THEN NOW() ELSE NULL END",
	}
	args := []any{id, status}
	argIdx := 3

	if p.Progress != nil {
		sets = append(sets, fmt.Sprintf("progress_percentage = $%d", argIdx))
		args = append(args, *p.Progress)
		argIdx++
	}
	if p.ErrorMessage != nil {
		sets = append(sets, fmt.Sprintf("error_message = $%d", argIdx))
		args = append(args, *p.ErrorMessage)
		argIdx++
	}
	if p.FilePath != nil {
		sets = append(sets, fmt.Sprintf("file_path = $%d, file_size = $%d", argIdx, argIdx+1))
		args = append(args, *p.FilePath, *p.FileSize)
		argIdx += 2
	}

	query := "UPDATE exports SET " + strings.Join(sets, ", ") + " WHERE id = $1"
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update export status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpiredExports removes completed jobs whose completed_at is before
// cutoff and returns the deleted rows so callers can remove their files.
// Pending and failed jobs are never swept.
func (s *PostgresStore) DeleteExpiredExports(ctx context.Context, cutoff time.Time) ([]*models.ExportJob, error) {
	rows, err := s.pool.Query(ctx,
		`DELETE FROM exports WHERE status = 'completed' AND completed_at < $1
		 RETURNING `+exportColumns, cutoff)
	if err != nil {
		return nil, fmt.Errorf("delete expired exports: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ExportJob
	for rows.Next() {
		j, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired export: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) ExportStats(ctx context.Context) (*models.ExportStats, error) {
	var st models.ExportStats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		   COUNT(*) FILTER (WHERE status = 'pending'),
		   COUNT(*) FILTER (WHERE status = 'processing'),
		   COUNT(*) FILTER (WHERE status = 'completed'),
		   COUNT(*) FILTER (WHERE status = 'failed')
		 FROM exports`,
	).Scan(&st.Total, &st.Pending, &st.Processing, &st.Completed, &st.Failed)
	if err != nil {
		return nil, fmt.Errorf("export stats: %w", err)
	}
	return &st, nil
}

// --- Conversations / Escalations / Metrics ---

func (s *PostgresStore) CreateConversation(ctx context.Context, c *models.Conversation) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (id, session_id, user_email, user_query, ai_response, status,
		   language, response_time_ms, is_escalated, escalated_at, escalation_reason,
		   created_at, updated_at, resolved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		c.ID, c.SessionID, c.UserEmail, c.UserQuery, c.AIResponse, c.Status,
		c.Language, c.ResponseTimeMS, c.IsEscalated, c.EscalatedAt, c.EscalationReason,
		c.CreatedAt, c.UpdatedAt, c.ResolvedAt)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateEscalation(ctx context.Context, e *models.Escalation) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO escalations (id, customer_name, customer_email, equipment_id, problem_description,
		   conversation_transcript, language, status, priority, internal_notes,
		   created_at, updated_at, resolved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, e.CustomerName, e.CustomerEmail, e.EquipmentID, e.ProblemDescription,
		e.ConversationTranscript, e.Language, e.Status, e.Priority, e.InternalNotes,
		e.CreatedAt, e.UpdatedAt, e.ResolvedAt)
	if err != nil {
		return fmt.Errorf("create escalation: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertDashboardMetric(ctx context.Context, m *models.DashboardMetric) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO dashboard_metrics (date, active_conversations, total_conversations,
		   resolved_conversations, total_users, unique_visitors, escalated_cases, pending_review,
		   avg_response_time, fastest_response_time, slowest_response_time, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		 ON CONFLICT (date) DO UPDATE SET
		   active_conversations = EXCLUDED.active_conversations,
		   total_conversations = EXCLUDED.total_conversations,
		   resolved_conversations = EXCLUDED.resolved_conversations,
		   total_users = EXCLUDED.total_users,
		   unique_visitors = EXCLUDED.unique_visitors,
		   escalated_cases = EXCLUDED.escalated_cases,
		   pending_review = EXCLUDED.pending_review,
		   avg_response_time = EXCLUDED.avg_response_time,
		   fastest_response_time = EXCLUDED.fastest_response_time,
		   slowest_response_time = EXCLUDED.slowest_response_time,
		   updated_at = NOW()`,
		m.Date, m.ActiveConversations, m.TotalConversations, m.ResolvedConversations,
		m.TotalUsers, m.UniqueVisitors, m.EscalatedCases, m.PendingReview,
		m.AvgResponseTime, m.FastestResponseTime, m.SlowestResponseTime)
	if err != nil {
		return fmt.Errorf("upsert dashboard metric: %w", err)
	}
	return nil
}

const metricColumns = `date, active_conversations, total_conversations, resolved_conversations,
	total_users, unique_visitors, escalated_cases, pending_review,
	avg_response_time, fastest_response_time, slowest_response_time, created_at, updated_at`

func scanMetric(row pgx.Row) (*models.DashboardMetric, error) {
	var m models.DashboardMetric
	err := row.Scan(&m.Date, &m.ActiveConversations, &m.TotalConversations, &m.ResolvedConversations,
		&m.TotalUsers, &m.UniqueVisitors, &m.EscalatedCases, &m.PendingReview,
		&m.AvgResponseTime, &m.FastestResponseTime, &m.SlowestResponseTime, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *PostgresStore) LatestMetric(ctx context.Context) (*models.DashboardMetric, error) {
	m, err := scanMetric(s.pool.QueryRow(ctx,
		`SELECT `+metricColumns+` FROM dashboard_metrics ORDER BY date DESC LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest metric: %w", err)
	}
	return m, nil
}

// --- Streaming rows for collectors ---

func (s *PostgresStore) ForEachConversation(ctx context.Context, start, end time.Time, fn func(*models.Conversation) error) error {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, user_email, user_query, ai_response, status, language,
		   response_time_ms, is_escalated, escalated_at, escalation_reason,
		   created_at, updated_at, resolved_at
		 FROM conversations WHERE created_at BETWEEN $1 AND $2 ORDER BY created_at`, start, end)
	if err != nil {
		return fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.SessionID, &c.UserEmail, &c.UserQuery, &c.AIResponse,
			&c.Status, &c.Language, &c.ResponseTimeMS, &c.IsEscalated, &c.EscalatedAt,
			&c.EscalationReason, &c.CreatedAt, &c.UpdatedAt, &c.ResolvedAt); err != nil {
			return fmt.Errorf("scan conversation: %w", err)
		}
		if err := fn(&c); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *PostgresStore) ForEachEntry(ctx context.Context, start, end time.Time, fn func(*models.KnowledgeEntry) error) error {
	rows, err := s.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM knowledge_entries
		 WHERE created_at BETWEEN $1 AND $2 ORDER BY created_at`, start, end)
	if err != nil {
		return fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return fmt.Errorf("scan entry: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *PostgresStore) ForEachEscalation(ctx context.Context, start, end time.Time, fn func(*models.Escalation) error) error {
	rows, err := s.pool.Query(ctx,
		`SELECT id, customer_name, customer_email, equipment_id, problem_description,
		   conversation_transcript, language, status, priority, internal_notes,
		   created_at, updated_at, resolved_at
		 FROM escalations WHERE created_at BETWEEN $1 AND $2 ORDER BY created_at`, start, end)
	if err != nil {
		return fmt.Errorf("query escalations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.Escalation
		if err := rows.Scan(&e.ID, &e.CustomerName, &e.CustomerEmail, &e.EquipmentID,
			&e.ProblemDescription, &e.ConversationTranscript, &e.Language, &e.Status,
			&e.Priority, &e.InternalNotes, &e.CreatedAt, &e.UpdatedAt, &e.ResolvedAt); err != nil {
			return fmt.Errorf("scan escalation: %w", err)
		}
		if err := fn(&e); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ForEachMetric streams daily metrics from the given date onward.
// Metrics are bounded by date, not datetime.
func (s *PostgresStore) ForEachMetric(ctx context.Context, since time.Time, fn func(*models.DashboardMetric) error) error {
	rows, err := s.pool.Query(ctx,
		`SELECT `+metricColumns+` FROM dashboard_metrics WHERE date >= $1 ORDER BY date`, since)
	if err != nil {
		return fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return fmt.Errorf("scan metric: %w", err)
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return rows.Err()
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
