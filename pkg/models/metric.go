package models

import "time"

// DashboardMetric is one day of aggregated usage metrics, written by a
// periodic aggregation job and read by the dashboard and the analytics
// export collector. Date carries day granularity only.
type DashboardMetric struct {
	Date                  time.Time `db:"date"                   json:"date"`
	ActiveConversations   int       `db:"active_conversations"   json:"active_conversations"`
	TotalConversations    int       `db:"total_conversations"    json:"total_conversations"`
	ResolvedConversations int       `db:"resolved_conversations" json:"resolved_conversations"`
	TotalUsers            int       `db:"total_users"            json:"total_users"`
	UniqueVisitors        int       `db:"unique_visitors"        json:"unique_visitors"`
	EscalatedCases        int       `db:"escalated_cases"        json:"escalated_cases"`
	PendingReview         int       `db:"pending_review"         json:"pending_review"`
	AvgResponseTime       float64   `db:"avg_response_time"      json:"avg_response_time"`
	FastestResponseTime   float64   `db:"fastest_response_time"  json:"fastest_response_time"`
	SlowestResponseTime   float64   `db:"slowest_response_time"  json:"slowest_response_time"`
	CreatedAt             time.Time `db:"created_at"             json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at"             json:"updated_at"`
}
