// Package formatter renders workflow outcomes and record store reports
// for the command line.
package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/clinicops/chartquery/internal/schema"
	"github.com/clinicops/chartquery/internal/storage"
	"github.com/clinicops/chartquery/internal/workflow"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatLong  OutputFormat = "long"
	FormatShort OutputFormat = "short"
)

// Formatter handles command-line output formatting
type Formatter struct{}

// NewFormatter creates a new formatter instance
func NewFormatter() *Formatter {
	return &Formatter{}
}

// FormatAnswer renders a workflow outcome. The short form is the user
// message alone; the long form appends the extraction and query detail
// lines.
func (f *Formatter) FormatAnswer(result *workflow.Result, format OutputFormat) string {
	if format != FormatLong {
		return result.Message
	}

	lines := []string{result.Message, ""}

	lines = append(lines, "Outcome:    "+string(result.Terminal))

	if result.Identifier != "" {
		lines = append(lines, "Patient:    "+result.Identifier)
	}

	if len(result.Fields) > 0 {
		lines = append(lines, "Fields:     "+strings.Join(result.Fields, ", "))
	}

	if result.QueryText != "" {
		lines = append(lines, "Query:      "+result.QueryText)
	}

	lines = append(lines, fmt.Sprintf("Rows:       %d", result.RowCount))
	lines = append(lines, fmt.Sprintf("Hops:       %d", result.HopCount))
	lines = append(lines, "Request ID: "+result.RequestID)

	return strings.Join(lines, "\n")
}

// FormatFieldCatalog renders the column catalog as an aligned table in
// definition order.
func (f *Formatter) FormatFieldCatalog(entries []schema.Entry) string {
	nameWidth := 0

	for _, entry := range entries {
		if len(entry.Name) > nameWidth {
			nameWidth = len(entry.Name)
		}
	}

	lines := make([]string, 0, len(entries))

	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("%-*s  %-10s  %s",
			nameWidth, entry.Name, string(entry.Category), entry.Description))
	}

	return strings.Join(lines, "\n")
}

// FormatStats renders record store statistics.
func (f *Formatter) FormatStats(stats *storage.Stats) string {
	lastImport := "never"
	if stats.LastImportTime != nil {
		lastImport = f.humanizeAge(*stats.LastImportTime)
	}

	lines := []string{
		"Record Store Statistics",
		"=======================",
		fmt.Sprintf("Total visits:      %d", stats.TotalRecords),
		fmt.Sprintf("Distinct patients: %d", stats.DistinctPatients),
		fmt.Sprintf("Database size:     %.2f MB", stats.DatabaseSizeMB),
		"Last import:       " + lastImport,
	}

	return strings.Join(lines, "\n")
}

// humanizeAge converts a time to a human-readable age string
func (f *Formatter) humanizeAge(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	days := int(time.Since(t).Hours() / 24)

	if days < 1 {
		return "today"
	} else if days == 1 {
		return "1 day ago"
	} else if days < 30 {
		return fmt.Sprintf("%d days ago", days)
	} else if days < 365 {
		months := days / 30
		if months == 1 {
			return "1 month ago"
		}

		return fmt.Sprintf("%d months ago", months)
	}

	years := days / 365
	if years == 1 {
		return "1 year ago"
	}

	return fmt.Sprintf("%d years ago", years)
}
