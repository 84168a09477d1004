package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/clinicops/chartquery/internal/schema"
	"github.com/clinicops/chartquery/internal/storage"
	"github.com/clinicops/chartquery/internal/workflow"
)

func TestFormatAnswerShortIsMessageAlone(t *testing.T) {
	f := NewFormatter()

	result := &workflow.Result{
		Terminal:  workflow.TerminalAnswered,
		Message:   "The patient presented with blurred vision in the right eye.",
		HopCount:  5,
		RequestID: "req-1",
	}

	got := f.FormatAnswer(result, FormatShort)
	if got != result.Message {
		t.Errorf("short form should be the message alone, got %q", got)
	}
}

func TestFormatAnswerLongIncludesDetails(t *testing.T) {
	f := NewFormatter()

	result := &workflow.Result{
		Terminal:   workflow.TerminalAnswered,
		Message:    "The right eye pressure measured 18 mmHg.",
		Identifier: "A102",
		Fields:     []string{"IopRe"},
		QueryText:  "SELECT Anonymous_Uid, IopRe FROM patients WHERE Anonymous_Uid = 'A102'",
		RowCount:   1,
		HopCount:   5,
		RequestID:  "req-2",
	}

	got := f.FormatAnswer(result, FormatLong)

	for _, want := range []string{
		"The right eye pressure measured 18 mmHg.",
		"Outcome:    answered",
		"Patient:    A102",
		"Fields:     IopRe",
		"Query:      SELECT",
		"Rows:       1",
		"Hops:       5",
		"Request ID: req-2",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in long form, got:\n%s", want, got)
		}
	}
}

func TestFormatAnswerLongSkipsEmptySections(t *testing.T) {
	f := NewFormatter()

	result := &workflow.Result{
		Terminal:  workflow.TerminalNoData,
		Message:   workflow.MessageNoIdentifier,
		HopCount:  4,
		RequestID: "req-3",
	}

	got := f.FormatAnswer(result, FormatLong)

	if strings.Contains(got, "Patient:") {
		t.Errorf("expected no patient line without an identifier, got:\n%s", got)
	}

	if strings.Contains(got, "Query:") {
		t.Errorf("expected no query line without a query, got:\n%s", got)
	}

	if !strings.Contains(got, "Outcome:    no_data") {
		t.Errorf("expected the outcome line, got:\n%s", got)
	}
}

func TestFormatFieldCatalogAlignsColumns(t *testing.T) {
	f := NewFormatter()

	entries := []schema.Entry{
		{Name: "Anonymous_Uid", Description: "Anonymized patient identifier", Category: schema.CategoryOther},
		{Name: "IopRe", Description: "Intraocular pressure (IOP) of the right eye in mmHg", Category: schema.CategoryEyeSide},
	}

	got := f.FormatFieldCatalog(entries)

	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one line per entry, got %d:\n%s", len(lines), got)
	}

	first := strings.Index(lines[0], "Other")
	second := strings.Index(lines[1], "EyeSide")

	if first == -1 || second == -1 || first != second {
		t.Errorf("expected category columns to align, got:\n%s", got)
	}
}

func TestFormatStats(t *testing.T) {
	f := NewFormatter()

	imported := time.Now().Add(-36 * time.Hour)
	stats := &storage.Stats{
		TotalRecords:     10,
		DistinctPatients: 3,
		DatabaseSizeMB:   0.5,
		LastImportTime:   &imported,
	}

	got := f.FormatStats(stats)

	for _, want := range []string{
		"Record Store Statistics",
		"Total visits:      10",
		"Distinct patients: 3",
		"Database size:     0.50 MB",
		"1 day ago",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in stats output, got:\n%s", want, got)
		}
	}
}

func TestFormatStatsNeverImported(t *testing.T) {
	f := NewFormatter()

	got := f.FormatStats(&storage.Stats{})

	if !strings.Contains(got, "Last import:       never") {
		t.Errorf("expected never for a store with no imports, got:\n%s", got)
	}
}

func TestHumanizeAge(t *testing.T) {
	f := NewFormatter()

	tests := []struct {
		name string
		age  time.Duration
		want string
	}{
		{"today", 2 * time.Hour, "today"},
		{"one day", 25 * time.Hour, "1 day ago"},
		{"days", 10 * 24 * time.Hour, "10 days ago"},
		{"one month", 45 * 24 * time.Hour, "1 month ago"},
		{"months", 200 * 24 * time.Hour, "6 months ago"},
		{"one year", 400 * 24 * time.Hour, "1 year ago"},
		{"years", 800 * 24 * time.Hour, "2 years ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.humanizeAge(time.Now().Add(-tt.age))
			if got != tt.want {
				t.Errorf("humanizeAge(%v ago) = %q, want %q", tt.age, got, tt.want)
			}
		})
	}
}
