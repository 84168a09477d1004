package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clinicops/chartquery/internal/schema"
)

// NewTestDB creates a temporary test database with auto-cleanup.
// Returns the repository and a cleanup function that should be deferred.
func NewTestDB(t *testing.T) (*DuckDBRepository, func()) {
	t.Helper()

	catalog, err := schema.Load("")
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	tempDir, err := os.MkdirTemp("", "test_db_*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tempDir, "test.db")

	repo, err := NewDuckDBRepository(dbPath, catalog)
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("failed to create test repository: %v", err)
	}

	ctx := context.Background()
	if err := repo.Initialize(ctx); err != nil {
		repo.Close()
		os.RemoveAll(tempDir)
		t.Fatalf("failed to initialize test repository: %v", err)
	}

	cleanup := func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close test repository: %v", err)
		}

		if err := os.RemoveAll(tempDir); err != nil {
			t.Errorf("failed to remove temp dir: %v", err)
		}
	}

	return repo, cleanup
}

// NewTestDBWithVisits creates a temporary test database pre-seeded with
// visit rows given as column to value maps. Returns the repository and a
// cleanup function that should be deferred.
func NewTestDBWithVisits(t *testing.T, visits []map[string]string) (*DuckDBRepository, func()) {
	t.Helper()

	repo, cleanup := NewTestDB(t)

	ctx := context.Background()
	for i, visit := range visits {
		if err := insertVisit(ctx, repo, visit); err != nil {
			cleanup()
			t.Fatalf("failed to seed visit %d: %v", i, err)
		}
	}

	return repo, cleanup
}

// SeedVisits inserts visit rows into an existing test database.
func SeedVisits(t *testing.T, repo *DuckDBRepository, visits []map[string]string) {
	t.Helper()

	ctx := context.Background()
	for i, visit := range visits {
		if err := insertVisit(ctx, repo, visit); err != nil {
			t.Fatalf("failed to seed visit %d: %v", i, err)
		}
	}
}

func insertVisit(ctx context.Context, r *DuckDBRepository, visit map[string]string) error {
	for key := range visit {
		if _, ok := r.catalog.Lookup(key); !ok {
			return fmt.Errorf("unknown column %q in seed row", key)
		}
	}

	var (
		columns      []string
		placeholders []string
		args         []interface{}
	)

	// Catalog order keeps the statement deterministic
	for _, name := range r.catalog.FieldNames() {
		value, ok := visit[name]
		if !ok {
			continue
		}

		columns = append(columns, fmt.Sprintf("%q", name))
		placeholders = append(placeholders, "?")
		args = append(args, value)
	}

	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		schema.Table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	if _, err := r.db.ExecContext(ctx, insertSQL, args...); err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}

	return nil
}
