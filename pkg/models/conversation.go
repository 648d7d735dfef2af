package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation status values.
const (
	ConversationStatusActive    = "active"
	ConversationStatusResolved  = "resolved"
	ConversationStatusEscalated = "escalated"
)

// Conversation is one user query / AI response exchange in a support
// session. UserEmail is personal data and is only surfaced in exports
// when explicitly requested.
type Conversation struct {
	ID               uuid.UUID  `db:"id"                json:"id"`
	SessionID        string     `db:"session_id"        json:"session_id"`
	UserEmail        string     `db:"user_email"        json:"user_email,omitempty"`
	UserQuery        string     `db:"user_query"        json:"user_query"`
	AIResponse       string     `db:"ai_response"       json:"ai_response"`
	Status           string     `db:"status"            json:"status"`
	Language         string     `db:"language"          json:"language"`
	ResponseTimeMS   int        `db:"response_time_ms"  json:"response_time_ms"`
	IsEscalated      bool       `db:"is_escalated"      json:"is_escalated"`
	EscalatedAt      *time.Time `db:"escalated_at"      json:"escalated_at,omitempty"`
	EscalationReason string     `db:"escalation_reason" json:"escalation_reason,omitempty"`
	CreatedAt        time.Time  `db:"created_at"        json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"        json:"updated_at"`
	ResolvedAt       *time.Time `db:"resolved_at"       json:"resolved_at,omitempty"`
}
