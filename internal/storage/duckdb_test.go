package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/clinicops/chartquery/internal/errors"
)

func TestDuckDBRepository(t *testing.T) {
	repo, cleanup := NewTestDBWithVisits(t, []map[string]string{
		{
			"Anonymous_Uid": "A102",
			"VisitDate":     "2024-01-10",
			"Diagnosis":     "Senile cataract",
			"MedicationRe":  "Latanoprost eye drops",
		},
		{
			"Anonymous_Uid": "A102",
			"VisitDate":     "2024-04-22",
			"Diagnosis":     "Senile cataract, stable",
			"MedicationRe":  "Latanoprost eye drops",
		},
		{
			"Anonymous_Uid": "B777",
			"VisitDate":     "2024-05-02",
			"Diagnosis":     "Allergic conjunctivitis",
		},
	})
	defer cleanup()

	ctx := context.Background()

	t.Run("Initialize", func(t *testing.T) {
		var count int
		if err := repo.db.QueryRow("SELECT COUNT(*) FROM patients").Scan(&count); err != nil {
			t.Fatalf("Failed to query patients table: %v", err)
		}

		if err := repo.db.QueryRow("SELECT COUNT(*) FROM import_log").Scan(&count); err != nil {
			t.Fatalf("Failed to query import_log table: %v", err)
		}

		// Running Initialize again must be a no-op
		if err := repo.Initialize(ctx); err != nil {
			t.Fatalf("Second initialize failed: %v", err)
		}
	})

	t.Run("FetchRecords", func(t *testing.T) {
		statement := `SELECT "Anonymous_Uid", "VisitDate", "Diagnosis", "MedicationRe", "Advice"` +
			` FROM patients WHERE "Anonymous_Uid" = 'A102'`

		records, err := repo.FetchRecords(ctx, statement)
		if err != nil {
			t.Fatalf("Failed to fetch records: %v", err)
		}

		if len(records) != 2 {
			t.Fatalf("Expected 2 records, got %d", len(records))
		}

		for _, record := range records {
			if record.Get("Anonymous_Uid") != "A102" {
				t.Errorf("Expected identifier A102, got %q", record.Get("Anonymous_Uid"))
			}

			if !strings.Contains(record.Get("Diagnosis"), "cataract") {
				t.Errorf("Expected cataract diagnosis, got %q", record.Get("Diagnosis"))
			}

			// Advice was never seeded, NULL must render as ""
			if record.Get("Advice") != "" {
				t.Errorf("Expected empty Advice, got %q", record.Get("Advice"))
			}
		}

		wantColumns := []string{"Anonymous_Uid", "VisitDate", "Diagnosis", "MedicationRe", "Advice"}
		for i, column := range wantColumns {
			if records[0].Columns[i] != column {
				t.Errorf("Expected column %d to be %s, got %s", i, column, records[0].Columns[i])
			}
		}
	})

	t.Run("FetchRecordsEmpty", func(t *testing.T) {
		statement := `SELECT "Diagnosis" FROM patients WHERE "Anonymous_Uid" = 'Z000'`

		records, err := repo.FetchRecords(ctx, statement)
		if err != nil {
			t.Fatalf("Failed to fetch records: %v", err)
		}

		if len(records) != 0 {
			t.Errorf("Expected no records, got %d", len(records))
		}
	})

	t.Run("FetchRecordsBadSQL", func(t *testing.T) {
		_, err := repo.FetchRecords(ctx, `SELECT "NoSuchColumn" FROM patients`)
		if err == nil {
			t.Fatal("Expected error for unknown column")
		}

		if !apperrors.IsType(err, apperrors.ErrTypeStorage) {
			t.Errorf("Expected storage error, got %v", err)
		}
	})

	t.Run("GetStats", func(t *testing.T) {
		stats, err := repo.GetStats(ctx)
		if err != nil {
			t.Fatalf("Failed to get stats: %v", err)
		}

		if stats.TotalRecords != 3 {
			t.Errorf("Expected 3 records, got %d", stats.TotalRecords)
		}

		if stats.DistinctPatients != 2 {
			t.Errorf("Expected 2 distinct patients, got %d", stats.DistinctPatients)
		}

		if stats.LastImportTime != nil {
			t.Errorf("Expected no import time before any csv import, got %v", stats.LastImportTime)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		if err := repo.Clear(ctx); err != nil {
			t.Fatalf("Failed to clear: %v", err)
		}

		stats, err := repo.GetStats(ctx)
		if err != nil {
			t.Fatalf("Failed to get stats after clear: %v", err)
		}

		if stats.TotalRecords != 0 {
			t.Errorf("Expected 0 records after clear, got %d", stats.TotalRecords)
		}
	})
}

const testCSVHeader = "Anonymous_Uid,VisitDate,ChiefComplaint,VisualAcuityRe,VisualAcuityLe," +
	"IopRe,IopLe,FindingsRe,FindingsLe,Diagnosis,DiagnosisProvisional," +
	"MedicationRe,MedicationLe,SystemicMedication,Advice"

func writeTestCSV(t *testing.T, lines ...string) string {
	t.Helper()

	csvPath := filepath.Join(t.TempDir(), "export.csv")
	content := strings.Join(lines, "\n") + "\n"

	if err := os.WriteFile(csvPath, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write test csv: %v", err)
	}

	return csvPath
}

func TestImportCSV(t *testing.T) {
	repo, cleanup := NewTestDB(t)
	defer cleanup()

	ctx := context.Background()

	csvPath := writeTestCSV(t,
		testCSVHeader,
		"A102,2024-03-14,Blurred vision,6/9,6/6,18,16,Early lens changes,Clear,"+
			"Senile cataract,,Latanoprost eye drops,,Metformin 500mg,Review in 6 months",
		"B777,2024-05-02,Red eye,6/6,6/12,14,15,Clear,Conjunctival congestion,"+
			"Allergic conjunctivitis,,,Olopatadine drops,,Cold compress",
	)

	count, err := repo.ImportCSV(ctx, csvPath, false)
	if err != nil {
		t.Fatalf("Failed to import csv: %v", err)
	}

	if count != 2 {
		t.Errorf("Expected 2 imported rows, got %d", count)
	}

	stats, err := repo.GetStats(ctx)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}

	if stats.TotalRecords != 2 {
		t.Errorf("Expected 2 records, got %d", stats.TotalRecords)
	}

	if stats.LastImportTime == nil {
		t.Error("Expected an import time after csv import")
	} else if time.Since(*stats.LastImportTime) > time.Hour {
		t.Errorf("Import time looks stale: %v", stats.LastImportTime)
	}

	// Importing again without truncate appends
	if _, err := repo.ImportCSV(ctx, csvPath, false); err != nil {
		t.Fatalf("Failed to re-import csv: %v", err)
	}

	stats, err = repo.GetStats(ctx)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}

	if stats.TotalRecords != 4 {
		t.Errorf("Expected 4 records after append, got %d", stats.TotalRecords)
	}

	// Truncate replaces everything in one transaction
	if _, err := repo.ImportCSV(ctx, csvPath, true); err != nil {
		t.Fatalf("Failed to truncate-import csv: %v", err)
	}

	stats, err = repo.GetStats(ctx)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}

	if stats.TotalRecords != 2 {
		t.Errorf("Expected 2 records after truncate import, got %d", stats.TotalRecords)
	}
}

func TestImportCSVColumnOrder(t *testing.T) {
	repo, cleanup := NewTestDB(t)
	defer cleanup()

	ctx := context.Background()

	// Same columns, reversed header order: matching is by name
	csvPath := writeTestCSV(t,
		"Advice,SystemicMedication,MedicationLe,MedicationRe,DiagnosisProvisional,"+
			"Diagnosis,FindingsLe,FindingsRe,IopLe,IopRe,VisualAcuityLe,VisualAcuityRe,"+
			"ChiefComplaint,VisitDate,Anonymous_Uid",
		",,,Timolol drops,,Glaucoma suspect,,,,22,,6/9,Headache,2024-06-20,C303",
	)

	count, err := repo.ImportCSV(ctx, csvPath, false)
	if err != nil {
		t.Fatalf("Failed to import reordered csv: %v", err)
	}

	if count != 1 {
		t.Errorf("Expected 1 imported row, got %d", count)
	}

	records, err := repo.FetchRecords(ctx,
		`SELECT "Diagnosis", "IopRe", "MedicationRe" FROM patients WHERE "Anonymous_Uid" = 'C303'`)
	if err != nil {
		t.Fatalf("Failed to fetch imported record: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	if records[0].Get("Diagnosis") != "Glaucoma suspect" {
		t.Errorf("Expected diagnosis mapped by name, got %q", records[0].Get("Diagnosis"))
	}

	if records[0].Get("IopRe") != "22" {
		t.Errorf("Expected IopRe 22, got %q", records[0].Get("IopRe"))
	}
}

func TestImportCSVMissingColumn(t *testing.T) {
	repo, cleanup := NewTestDB(t)
	defer cleanup()

	ctx := context.Background()

	csvPath := writeTestCSV(t,
		"Anonymous_Uid,Diagnosis",
		"A102,Senile cataract",
	)

	if _, err := repo.ImportCSV(ctx, csvPath, false); err == nil {
		t.Fatal("Expected error for csv missing catalog columns")
	}

	// Failed import must not leave partial data behind
	stats, err := repo.GetStats(ctx)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}

	if stats.TotalRecords != 0 {
		t.Errorf("Expected 0 records after failed import, got %d", stats.TotalRecords)
	}
}

func TestImportCSVMissingFile(t *testing.T) {
	repo, cleanup := NewTestDB(t)
	defer cleanup()

	_, err := repo.ImportCSV(context.Background(), "/nonexistent/export.csv", false)
	if err == nil {
		t.Fatal("Expected error for missing csv file")
	}

	if !apperrors.IsType(err, apperrors.ErrTypeStorage) {
		t.Errorf("Expected storage error, got %v", err)
	}
}

func TestRenderValue(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"nil", nil, ""},
		{"string", "Latanoprost", "Latanoprost"},
		{"bytes", []byte("drops"), "drops"},
		{"time", time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC), "2024-03-14"},
		{"int64", int64(42), "42"},
		{"float64", 1.5, "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderValue(tt.value); got != tt.want {
				t.Errorf("renderValue(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
