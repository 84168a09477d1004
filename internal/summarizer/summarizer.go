// Package summarizer renders retrieved visit rows into one clinical
// narrative paragraph. The stylistic constraints (sequential findings,
// diagnoses, medications; no lists; nothing beyond the rows) are carried
// by the generation directive; the only structural check applied to the
// output is the identifier scrub.
package summarizer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	apperrors "github.com/clinicops/chartquery/internal/errors"
	"github.com/clinicops/chartquery/internal/llm"
	"github.com/clinicops/chartquery/internal/schema"
	"github.com/clinicops/chartquery/internal/storage"
)

// NoValuesMessage is returned when no visit carries a reportable value.
// It is a complete answer, not a fault.
const NoValuesMessage = "No meaningful patient data available to summarize."

const maxValueLength = 150

const directive = `You are a medical assistant creating a professional clinical summary.

INSTRUCTIONS:
1. Write the summary as a single, flowing paragraph in narrative format
2. DO NOT use bullet points, numbered lists, or section headers
3. Use complete sentences and proper medical terminology
4. Present information in a logical clinical sequence: findings, diagnoses, then medications and treatment
5. DO NOT include patient identifiers (IDs, names, etc.)
6. DO NOT add information not present in the data
7. DO NOT infer or extrapolate beyond what is explicitly stated
8. Keep the tone formal and professional like a medical record entry

PATIENT DATA:
%s

Provide a concise paragraph summary:`

// Summarizer turns record rows into narrative text.
type Summarizer struct {
	generator llm.Generator
}

// New creates a summarizer backed by the given generator.
func New(generator llm.Generator) *Summarizer {
	return &Summarizer{generator: generator}
}

// Summarize renders rows for one patient into a narrative paragraph.
// When no row has a reportable value the fixed no-values sentence is
// returned without calling the generation service. A service fault or
// an empty completion is a generation error; the caller decides the
// terminal.
func (s *Summarizer) Summarize(
	ctx context.Context,
	identifier string,
	rows []storage.RecordRow,
) (string, error) {
	digest := Digest(rows)
	if digest == "" {
		return NoValuesMessage, nil
	}

	completion, err := s.generator.Generate(ctx, fmt.Sprintf(directive, digest))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrTypeGeneration,
			"failed to generate summary")
	}

	narrative := strings.TrimSpace(ScrubIdentifier(completion, identifier))
	if narrative == "" {
		return "", apperrors.New(apperrors.ErrTypeGeneration,
			"generation service returned an empty summary")
	}

	return narrative, nil
}

// Digest renders rows as visit blocks for the generation prompt. Each
// row becomes a "Visit N:" header followed by "Field: value" lines; the
// identifier column, empty values, and "nan" placeholders from upstream
// exports are skipped; long values are truncated. Returns "" when no
// row has a reportable value.
func Digest(rows []storage.RecordRow) string {
	var b strings.Builder

	reportable := false

	for i, row := range rows {
		fmt.Fprintf(&b, "Visit %d:\n", i+1)

		for _, column := range row.Columns {
			if strings.EqualFold(column, schema.IdentifierColumn) {
				continue
			}

			value := strings.TrimSpace(row.Values[column])
			if value == "" || strings.EqualFold(value, "nan") {
				continue
			}

			if len(value) > maxValueLength {
				value = value[:maxValueLength-3] + "..."
			}

			fmt.Fprintf(&b, "  %s: %s\n", column, value)
			reportable = true
		}

		b.WriteString("\n")
	}

	if !reportable {
		return ""
	}

	return b.String()
}

var duplicatedPatientPattern = regexp.MustCompile(`(?i)\b(?:the\s+)?patient the patient\b`)

// ScrubIdentifier removes the raw identifier token from the narrative,
// ignoring case, and replaces it with a neutral reference. The token is
// matched on word boundaries so substrings of longer tokens survive.
func ScrubIdentifier(text, identifier string) string {
	if identifier == "" {
		return text
	}

	pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(identifier) + `\b`)
	scrubbed := pattern.ReplaceAllString(text, "the patient")

	// "patient A102" becomes "patient the patient" above; collapse it
	return duplicatedPatientPattern.ReplaceAllString(scrubbed, "the patient")
}
