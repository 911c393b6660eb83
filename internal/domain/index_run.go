package domain

import "time"

// IndexRunStatus represents the status of an indexing run.
type IndexRunStatus string

const (
	IndexRunStatusRunning   IndexRunStatus = "running"
	IndexRunStatusCompleted IndexRunStatus = "completed"
	IndexRunStatusFailed    IndexRunStatus = "failed"
)

// IndexRun records one offline indexing run and its summary.
type IndexRun struct {
	ID          string         `gorm:"type:text;primaryKey" json:"id"`
	Source      string         `gorm:"type:text;not null;index" json:"source"`
	Status      IndexRunStatus `gorm:"type:text;index;default:running" json:"status"`
	Model       string         `gorm:"type:text" json:"model"`
	Dimension   int            `gorm:"default:0" json:"dimension"`
	StorePath   string         `gorm:"type:text" json:"store_path"`
	TotalItems  int            `gorm:"default:0" json:"total_items"`
	Succeeded   int            `gorm:"default:0" json:"succeeded"`
	Failed      int            `gorm:"default:0" json:"failed"`
	Failures    StringArray    `gorm:"type:text" json:"failures"`
	ErrorLog    string         `json:"error_log,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName returns the database table name for IndexRun.
func (IndexRun) TableName() string {
	return "index_runs"
}
