package export

import (
	"context"
	"time"

	"github.com/furqan899/safelift-ai/internal/store"
	"github.com/furqan899/safelift-ai/pkg/models"
)

// Collector streams the records of one data type, bounded to the job's
// date range. The callback is invoked once per record in storage order;
// returning an error stops the stream.
type Collector interface {
	Name() string
	Collect(ctx context.Context, fn func(Record) error) error
}

// collectorsFor returns the collectors for the requested data types, in the
// canonical order conversations, knowledge_base, escalations, analytics.
// Duplicate requests collapse to one collector.
func collectorsFor(st store.Store, job *models.ExportJob, now time.Time) []Collector {
	start := now.AddDate(0, 0, -job.DateRangeDays)
	requested := make(map[string]bool, len(job.DataTypes))
	for _, dt := range job.DataTypes {
		requested[dt] = true
	}

	var collectors []Collector
	if requested[models.DataTypeConversations] {
		collectors = append(collectors, &conversationCollector{st: st, start: start, end: now, pii: job.IncludePersonalData})
	}
	if requested[models.DataTypeKnowledgeBase] {
		collectors = append(collectors, &knowledgeBaseCollector{st: st, start: start, end: now, pii: job.IncludePersonalData})
	}
	if requested[models.DataTypeEscalations] {
		collectors = append(collectors, &escalationCollector{st: st, start: start, end: now, pii: job.IncludePersonalData})
	}
	if requested[models.DataTypeAnalytics] {
		// analytics rows carry day granularity, so the bound is the date only
		since := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		collectors = append(collectors, &analyticsCollector{st: st, since: since})
	}
	return collectors
}

type conversationCollector struct {
	st         store.Store
	start, end time.Time
	pii        bool
}

func (c *conversationCollector) Name() string { return models.DataTypeConversations }

func (c *conversationCollector) Collect(ctx context.Context, fn func(Record) error) error {
	return c.st.ForEachConversation(ctx, c.start, c.end, func(conv *models.Conversation) error {
		rec := Record{
			{Key: "id", Value: conv.ID.String()},
			{Key: "session_id", Value: conv.SessionID},
			{Key: "user_query", Value: conv.UserQuery},
			{Key: "ai_response", Value: conv.AIResponse},
			{Key: "status", Value: conv.Status},
			{Key: "language", Value: conv.Language},
			{Key: "response_time_ms", Value: conv.ResponseTimeMS},
			{Key: "is_escalated", Value: conv.IsEscalated},
			{Key: "escalated_at", Value: conv.EscalatedAt},
			{Key: "escalation_reason", Value: conv.EscalationReason},
			{Key: "created_at", Value: conv.CreatedAt},
		}
		if c.pii {
			rec = append(rec, Field{Key: "user_email", Value: conv.UserEmail})
		}
		return fn(rec)
	})
}

type knowledgeBaseCollector struct {
	st         store.Store
	start, end time.Time
	pii        bool
}

func (c *knowledgeBaseCollector) Name() string { return models.DataTypeKnowledgeBase }

func (c *knowledgeBaseCollector) Collect(ctx context.Context, fn func(Record) error) error {
	return c.st.ForEachEntry(ctx, c.start, c.end, func(entry *models.KnowledgeEntry) error {
		rec := Record{
			{Key: "id", Value: entry.ID.String()},
			{Key: "category", Value: entry.Category},
			{Key: "status", Value: entry.Status},
			{Key: "issue_title_en", Value: entry.IssueTitleEN},
			{Key: "solution_en", Value: entry.SolutionEN},
			{Key: "issue_title_sv", Value: entry.IssueTitleSV},
			{Key: "solution_sv", Value: entry.SolutionSV},
			{Key: "created_at", Value: entry.CreatedAt},
		}
		if c.pii {
			rec = append(rec, Field{Key: "created_by", Value: entry.CreatedBy.String()})
		}
		return fn(rec)
	})
}

type escalationCollector struct {
	st         store.Store
	start, end time.Time
	pii        bool
}

func (c *escalationCollector) Name() string { return models.DataTypeEscalations }

func (c *escalationCollector) Collect(ctx context.Context, fn func(Record) error) error {
	return c.st.ForEachEscalation(ctx, c.start, c.end, func(e *models.Escalation) error {
		rec := Record{
			{Key: "id", Value: e.ID.String()},
			{Key: "equipment_id", Value: e.EquipmentID},
			{Key: "problem_description", Value: e.ProblemDescription},
			{Key: "status", Value: e.Status},
			{Key: "priority", Value: e.Priority},
			{Key: "language", Value: e.Language},
			{Key: "created_at", Value: e.CreatedAt},
		}
		if c.pii {
			rec = append(rec,
				Field{Key: "customer_name", Value: e.CustomerName},
				Field{Key: "customer_email", Value: e.CustomerEmail},
			)
		}
		return fn(rec)
	})
}

type analyticsCollector struct {
	st    store.Store
	since time.Time
}

func (c *analyticsCollector) Name() string { return models.DataTypeAnalytics }

func (c *analyticsCollector) Collect(ctx context.Context, fn func(Record) error) error {
	return c.st.ForEachMetric(ctx, c.since, func(m *models.DashboardMetric) error {
		return fn(Record{
			{Key: "date", Value: m.Date.Format("2006-01-02")},
			{Key: "active_conversations", Value: m.ActiveConversations},
			{Key: "total_conversations", Value: m.TotalConversations},
			{Key: "resolved_conversations", Value: m.ResolvedConversations},
			{Key: "total_users", Value: m.TotalUsers},
			{Key: "unique_visitors", Value: m.UniqueVisitors},
			{Key: "escalated_cases", Value: m.EscalatedCases},
			{Key: "pending_review", Value: m.PendingReview},
			{Key: "avg_response_time", Value: m.AvgResponseTime},
			{Key: "fastest_response_time", Value: m.FastestResponseTime},
			{Key: "slowest_response_time", Value: m.SlowestResponseTime},
		})
	})
}
