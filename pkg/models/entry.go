package models

import (
	"time"

	"github.com/google/uuid"
)

// Entry status values control visibility, independent of embedding state.
const (
	EntryStatusActive   = "active"
	EntryStatusInactive = "inactive"
)

// Embedding status values track the per-entry embedding state machine.
const (
	EmbeddingStatusPending    = "pending"
	EmbeddingStatusProcessing = "processing"
	EmbeddingStatusCompleted  = "completed"
	EmbeddingStatusFailed     = "failed"
)

// Supported content languages for knowledge entries.
const (
	LanguageEnglish = "en"
	LanguageSwedish = "sv"
)

// KnowledgeEntry is a bilingual troubleshooting entry. Title/solution pairs
// are independently optional per language; an entry is valid when at least
// one language has both fields set.
type KnowledgeEntry struct {
	ID              uuid.UUID      `db:"id"               json:"id"`
	IssueTitleEN    string         `db:"issue_title_en"   json:"issue_title_en"`
	SolutionEN      string         `db:"solution_en"      json:"solution_en"`
	IssueTitleSV    string         `db:"issue_title_sv"   json:"issue_title_sv"`
	SolutionSV      string         `db:"solution_sv"      json:"solution_sv"`
	Category        string         `db:"category"         json:"category"`
	Status          string         `db:"status"           json:"status"`
	EmbeddingStatus string         `db:"embedding_status" json:"embedding_status"`
	VectorIDs       []string       `db:"vector_ids"       json:"vector_ids"`
	Tags            []string       `db:"tags"             json:"tags"`
	Metadata        map[string]any `db:"metadata"         json:"metadata"`
	CreatedBy       uuid.UUID      `db:"created_by"       json:"created_by"`
	CreatedAt       time.Time      `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"       json:"updated_at"`
	ProcessedAt     *time.Time     `db:"processed_at"     json:"processed_at,omitempty"`
}

// HasEnglish reports whether the English title/solution pair is complete.
func (e *KnowledgeEntry) HasEnglish() bool {
	return e.IssueTitleEN != "" && e.SolutionEN != ""
}

// HasSwedish reports whether the Swedish title/solution pair is complete.
func (e *KnowledgeEntry) HasSwedish() bool {
	return e.IssueTitleSV != "" && e.SolutionSV != ""
}

// Languages returns the complete language codes, English first.
func (e *KnowledgeEntry) Languages() []string {
	var langs []string
	if e.HasEnglish() {
		langs = append(langs, LanguageEnglish)
	}
	if e.HasSwedish() {
		langs = append(langs, LanguageSwedish)
	}
	return langs
}

// CombinedContent returns the text embedded for the given language:
// title and solution joined by a blank line.
func (e *KnowledgeEntry) CombinedContent(language string) string {
	if language == LanguageSwedish {
		return e.IssueTitleSV + "\n\n" + e.SolutionSV
	}
	return e.IssueTitleEN + "\n\n" + e.SolutionEN
}

// VectorID returns the deterministic vector-index id for one language.
func (e *KnowledgeEntry) VectorID(language string) string {
	return e.ID.String() + "_" + language
}

func (e *KnowledgeEntry) IsActive() bool {
	return e.Status == EntryStatusActive
}
