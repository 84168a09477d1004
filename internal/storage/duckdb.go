package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	apperrors "github.com/clinicops/chartquery/internal/errors"
	"github.com/clinicops/chartquery/internal/schema"
)

const defaultQueryTimeout = 30 * time.Second

// DuckDBRepository implements the Repository interface using DuckDB
type DuckDBRepository struct {
	db           *sql.DB
	path         string
	catalog      *schema.Catalog
	queryTimeout time.Duration
}

// NewDuckDBRepository creates a new DuckDB repository instance with connection pooling
func NewDuckDBRepository(dbPath string, catalog *schema.Catalog) (*DuckDBRepository, error) {
	return NewDuckDBRepositoryWithTimeout(dbPath, catalog, defaultQueryTimeout)
}

// NewDuckDBRepositoryWithTimeout creates a repository with an explicit
// per-query timeout.
func NewDuckDBRepositoryWithTimeout(
	dbPath string,
	catalog *schema.Catalog,
	queryTimeout time.Duration,
) (*DuckDBRepository, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeStorage,
			"failed to create database directory")
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to open database")
	}

	// Connection pool settings
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to ping database")
	}

	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}

	repo := &DuckDBRepository{
		db:           db,
		path:         dbPath,
		catalog:      catalog,
		queryTimeout: queryTimeout,
	}

	return repo, nil
}

// Initialize creates the database schema using migrations
func (r *DuckDBRepository) Initialize(ctx context.Context) error {
	migrationManager := NewMigrationManager(r.db, r.catalog)

	if err := migrationManager.MigrateUp(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to initialize schema")
	}

	return nil
}

// FetchRecords runs a guarded SELECT and renders every row as text.
// The statement is executed verbatim; callers are responsible for
// validating it first.
func (r *DuckDBRepository) FetchRecords(ctx context.Context, statement string) ([]RecordRow, error) {
	queryCtx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(queryCtx, statement)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeStorage,
			"failed to execute record query")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to get columns")
	}

	var records []RecordRow

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))

		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to scan row")
		}

		rendered := make(map[string]string, len(columns))
		for i, column := range columns {
			rendered[column] = renderValue(values[i])
		}

		records = append(records, RecordRow{Columns: columns, Values: rendered})
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to read rows")
	}

	return records, nil
}

// renderValue converts a scanned database value to display text.
// NULL renders as the empty string so downstream absence checks work
// the same for missing and empty values.
func renderValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ImportCSV loads patient records from a CSV export. Columns are matched
// by header name against the catalog, so export column order does not
// matter. With truncate set, existing records are replaced in the same
// transaction.
func (r *DuckDBRepository) ImportCSV(
	ctx context.Context,
	csvPath string,
	truncate bool,
) (int64, error) {
	if _, err := os.Stat(csvPath); err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrTypeStorage,
			fmt.Sprintf("cannot read csv file %s", csvPath))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to begin transaction")
	}

	defer func() { _ = tx.Rollback() }()

	if truncate {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+schema.Table); err != nil {
			return 0, apperrors.Wrap(err, apperrors.ErrTypeStorage,
				"failed to clear existing records")
		}
	}

	columnList := quotedColumnList(r.catalog.FieldNames())
	importSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM read_csv_auto('%s', header=true, all_varchar=true)",
		schema.Table, columnList, columnList,
		strings.ReplaceAll(csvPath, "'", "''"),
	)

	result, err := tx.ExecContext(ctx, importSQL)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to import csv")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to count imported rows")
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO import_log (id, source, row_count) VALUES (?, ?, ?)",
		uuid.New().String(), csvPath, count)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to record import")
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to commit import")
	}

	return count, nil
}

func quotedColumnList(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = fmt.Sprintf("%q", name)
	}

	return strings.Join(quoted, ", ")
}

// GetStats returns database statistics
func (r *DuckDBRepository) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+schema.Table).
		Scan(&stats.TotalRecords)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to get record count")
	}

	distinctSQL := fmt.Sprintf(`SELECT COUNT(DISTINCT %q) FROM %s`,
		schema.IdentifierColumn, schema.Table)

	err = r.db.QueryRowContext(ctx, distinctSQL).Scan(&stats.DistinctPatients)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to get patient count")
	}

	var lastImport *time.Time

	err = r.db.QueryRowContext(ctx, "SELECT MAX(imported_at) FROM import_log").Scan(&lastImport)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to get last import time")
	}

	stats.LastImportTime = lastImport

	// Approximate on-disk size
	if info, err := os.Stat(r.path); err == nil {
		stats.DatabaseSizeMB = float64(info.Size()) / (1024 * 1024)
	}

	return stats, nil
}

// Clear removes all data from the database
func (r *DuckDBRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM "+schema.Table); err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to clear records")
	}

	if _, err := r.db.ExecContext(ctx, "DELETE FROM import_log"); err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to clear import log")
	}

	return nil
}

// Close closes the database connection
func (r *DuckDBRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}

	return nil
}
