package models

import (
	"time"

	"github.com/google/uuid"
)

// Escalation status values.
const (
	EscalationStatusPending    = "pending"
	EscalationStatusInProgress = "in_progress"
	EscalationStatusResolved   = "resolved"
)

// Escalation priority values.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Escalation is a support case handed off from the AI assistant to a
// human agent. CustomerName and CustomerEmail are personal data.
type Escalation struct {
	ID                     uuid.UUID  `db:"id"                      json:"id"`
	CustomerName           string     `db:"customer_name"           json:"customer_name,omitempty"`
	CustomerEmail          string     `db:"customer_email"          json:"customer_email,omitempty"`
	EquipmentID            string     `db:"equipment_id"            json:"equipment_id"`
	ProblemDescription     string     `db:"problem_description"     json:"problem_description"`
	ConversationTranscript string     `db:"conversation_transcript" json:"conversation_transcript,omitempty"`
	Language               string     `db:"language"                json:"language"`
	Status                 string     `db:"status"                  json:"status"`
	Priority               string     `db:"priority"                json:"priority"`
	InternalNotes          string     `db:"internal_notes"          json:"internal_notes,omitempty"`
	CreatedAt              time.Time  `db:"created_at"              json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at"              json:"updated_at"`
	ResolvedAt             *time.Time `db:"resolved_at"             json:"resolved_at,omitempty"`
}
