package storage

import (
	"context"
	"time"
)

// Repository defines the interface for patient record storage.
type Repository interface {
	Initialize(ctx context.Context) error
	FetchRecords(ctx context.Context, statement string) ([]RecordRow, error)
	ImportCSV(ctx context.Context, csvPath string, truncate bool) (int64, error)
	GetStats(ctx context.Context) (*Stats, error)
	Clear(ctx context.Context) error
	Close() error
}

// RecordRow is one row of a record query. Values holds every selected
// column rendered as text; NULL renders as the empty string. Columns
// preserves the select-list order for display.
type RecordRow struct {
	Columns []string          `json:"columns"`
	Values  map[string]string `json:"values"`
}

// Get returns the rendered value for a column, or "" when the column
// was not selected.
func (r RecordRow) Get(column string) string {
	return r.Values[column]
}

// Stats represents database statistics
type Stats struct {
	TotalRecords     int64      `json:"total_records"`
	DistinctPatients int64      `json:"distinct_patients"`
	DatabaseSizeMB   float64    `json:"database_size_mb"`
	LastImportTime   *time.Time `json:"last_import_time,omitempty"`
}
