package testutil

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/clinicops/chartquery/internal/schema"
	"github.com/clinicops/chartquery/internal/storage"
)

// VisitOption is a functional option for configuring test visits
type VisitOption func(map[string]string)

// WithPatient sets the visit's patient identifier
func WithPatient(id string) VisitOption {
	return func(v map[string]string) {
		v[schema.IdentifierColumn] = id
	}
}

// WithVisitDate sets the visit date
func WithVisitDate(date string) VisitOption {
	return func(v map[string]string) {
		v["VisitDate"] = date
	}
}

// WithDiagnosis sets the confirmed diagnosis
func WithDiagnosis(diagnosis string) VisitOption {
	return func(v map[string]string) {
		v["Diagnosis"] = diagnosis
	}
}

// WithValue sets an arbitrary column value
func WithValue(column, value string) VisitOption {
	return func(v map[string]string) {
		v[column] = value
	}
}

// NewTestVisit creates a visit with plausible clinical defaults and
// applies any provided options.
func NewTestVisit(opts ...VisitOption) map[string]string {
	visit := map[string]string{
		schema.IdentifierColumn: TestPatientID,
		"VisitDate":             "2024-03-14",
		"ChiefComplaint":        "Blurred vision in the right eye",
		"VisualAcuityRe":        "6/18",
		"VisualAcuityLe":        "6/6",
		"IopRe":                 "18 mmHg",
		"IopLe":                 "16 mmHg",
		"FindingsRe":            "Early lens changes",
		"Diagnosis":             "Senile cataract",
		"MedicationRe":          "Latanoprost 0.005% HS",
		"Advice":                "Review in six weeks",
	}

	for _, opt := range opts {
		opt(visit)
	}

	return visit
}

// NewTestRows converts visits into record rows with catalog-ordered
// columns, the shape FetchRecords produces.
func NewTestRows(visits ...map[string]string) []storage.RecordRow {
	columns := catalogColumns()

	rows := make([]storage.RecordRow, len(visits))
	for i, visit := range visits {
		values := make(map[string]string, len(visit))
		for column, value := range visit {
			values[column] = value
		}

		rows[i] = storage.RecordRow{Columns: columns, Values: values}
	}

	return rows
}

// WriteCSV renders visits as a catalog-ordered CSV export in a temp
// directory and returns its path.
func WriteCSV(t *testing.T, visits ...map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "visits.csv")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create csv: %v", err)
	}
	defer f.Close()

	columns := catalogColumns()
	w := csv.NewWriter(f)

	if err := w.Write(columns); err != nil {
		t.Fatalf("write csv header: %v", err)
	}

	for _, visit := range visits {
		record := make([]string, len(columns))
		for i, column := range columns {
			record[i] = visit[column]
		}

		if err := w.Write(record); err != nil {
			t.Fatalf("write csv record: %v", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("flush csv: %v", err)
	}

	return path
}

var (
	columnsOnce sync.Once
	columnNames []string
)

// catalogColumns returns the embedded catalog's field names in
// definition order. The embedded catalog cannot fail to parse.
func catalogColumns() []string {
	columnsOnce.Do(func() {
		catalog, err := schema.Load("")
		if err != nil {
			panic(err)
		}

		columnNames = catalog.FieldNames()
	})

	return columnNames
}
