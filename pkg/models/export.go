package models

import (
	"time"

	"github.com/google/uuid"
)

// Export job status values. Completed and failed are terminal except for
// the single failed -> pending retry edge.
const (
	ExportStatusPending    = "pending"
	ExportStatusProcessing = "processing"
	ExportStatusCompleted  = "completed"
	ExportStatusFailed     = "failed"
)

// Export output formats.
const (
	ExportFormatCSV  = "csv"
	ExportFormatJSON = "json"
	ExportFormatPDF  = "pdf"
)

// Exportable data types.
const (
	DataTypeConversations = "conversations"
	DataTypeKnowledgeBase = "knowledge_base"
	DataTypeEscalations   = "escalations"
	DataTypeAnalytics     = "analytics"
)

// ExportJob tracks one export request from creation to a downloadable file.
// Config fields (data types, format, date range, PII flag) are immutable
// after creation; only status/progress/file bookkeeping changes.
type ExportJob struct {
	ID                  uuid.UUID  `db:"id"                    json:"id"`
	DataTypes           []string   `db:"data_types"            json:"data_types"`
	Format              string     `db:"format"                json:"format"`
	DateRangeDays       int        `db:"date_range_days"       json:"date_range_days"`
	IncludePersonalData bool       `db:"include_personal_data" json:"include_personal_data"`
	Status              string     `db:"status"                json:"status"`
	ProgressPercentage  int        `db:"progress_percentage"   json:"progress_percentage"`
	FilePath            string     `db:"file_path"             json:"file_path,omitempty"`
	FileSize            int64      `db:"file_size"             json:"file_size,omitempty"`
	ErrorMessage        string     `db:"error_message"         json:"error_message,omitempty"`
	CreatedBy           uuid.UUID  `db:"created_by"            json:"created_by"`
	CreatedAt           time.Time  `db:"created_at"            json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"            json:"updated_at"`
	CompletedAt         *time.Time `db:"completed_at"          json:"completed_at,omitempty"`
}

// ExportStats is a system-wide count of export jobs by status.
type ExportStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// ValidDataType reports whether dt names an exportable data type.
func ValidDataType(dt string) bool {
	switch dt {
	case DataTypeConversations, DataTypeKnowledgeBase, DataTypeEscalations, DataTypeAnalytics:
		return true
	}
	return false
}
