// Package query turns a routed request into one guard-validated SELECT
// statement. The model drafts the statement; the structural guard has
// the final word. A draft the guard rejects is replaced, at most once,
// by a statement rendered from the local template, so nothing the model
// wrote reaches the store unchecked.
package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/clinicops/chartquery/internal/errors"
	"github.com/clinicops/chartquery/internal/schema"
)

// Guard enforces the structural allow-list: one SELECT over the records
// table, bare catalog columns only, and exactly one equality predicate
// binding the identifier column to the routed identifier.
type Guard struct {
	catalog *schema.Catalog
}

// NewGuard creates a Guard over the given catalog.
func NewGuard(catalog *schema.Catalog) *Guard {
	return &Guard{catalog: catalog}
}

var (
	statementPattern = regexp.MustCompile(`(?is)^select\s+(.+?)\s+from\s+([A-Za-z_][A-Za-z0-9_]*)\s+where\s+(.+)$`)
	predicatePattern = regexp.MustCompile(`(?i)^` + schema.IdentifierColumn + `\s*=\s*'((?:[^']|'')*)'\s*$`)
	columnPattern    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	quotedLiteral    = regexp.MustCompile(`'(?:[^']|'')*'`)
	writeKeywords    = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|create|truncate|merge|replace|grant|revoke|attach|detach|copy|export|import|install|load|call|pragma|set|vacuum|exec|execute)\b`)
)

// Validate checks one statement. The identifier is the routed patient
// and fields are the resolved target columns: a predicate bound to any
// other patient or a select list reaching outside the resolved set
// fails, even when otherwise well formed. Quoted literals are data, so
// keyword and separator checks ignore their contents.
func (g *Guard) Validate(statement, identifier string, fields []string) error {
	trimmed := strings.TrimSpace(statement)
	if trimmed == "" {
		return errors.New(errors.ErrTypeGuard, "statement is empty")
	}

	scrubbed := quotedLiteral.ReplaceAllString(trimmed, "''")

	if strings.Contains(scrubbed, ";") {
		return errors.New(errors.ErrTypeGuard, "statement separators are not allowed")
	}

	for _, marker := range []string{"--", "/*", "*/"} {
		if strings.Contains(scrubbed, marker) {
			return errors.Newf(errors.ErrTypeGuard, "comment marker %q is not allowed", marker)
		}
	}

	if match := writeKeywords.FindString(scrubbed); match != "" {
		return errors.Newf(errors.ErrTypeGuard, "keyword %q is not allowed", strings.ToLower(match))
	}

	if strings.Count(strings.ToLower(scrubbed), "select") != 1 {
		return errors.New(errors.ErrTypeGuard, "exactly one SELECT is allowed")
	}

	parts := statementPattern.FindStringSubmatch(trimmed)
	if parts == nil {
		return errors.New(errors.ErrTypeGuard,
			"statement must have the shape SELECT columns FROM table WHERE predicate")
	}

	if err := g.validateColumns(parts[1], fields); err != nil {
		return err
	}

	if !strings.EqualFold(parts[2], schema.Table) {
		return errors.Newf(errors.ErrTypeGuard, "only the %s table may be queried", schema.Table)
	}

	return validatePredicate(parts[3], identifier)
}

func (g *Guard) validateColumns(list string, fields []string) error {
	allowed := make(map[string]bool, len(fields)+1)
	allowed[strings.ToLower(schema.IdentifierColumn)] = true

	for _, field := range fields {
		allowed[strings.ToLower(field)] = true
	}

	for _, col := range strings.Split(list, ",") {
		col = strings.TrimSpace(col)

		if !columnPattern.MatchString(col) {
			return errors.Newf(errors.ErrTypeGuard, "select list entry %q is not a bare column", col)
		}

		if _, ok := g.catalog.Lookup(col); !ok {
			return errors.Newf(errors.ErrTypeGuard, "unknown column %q", col)
		}

		if !allowed[strings.ToLower(col)] {
			return errors.Newf(errors.ErrTypeGuard, "column %q is outside the resolved field set", col)
		}
	}

	return nil
}

func validatePredicate(predicate, identifier string) error {
	match := predicatePattern.FindStringSubmatch(strings.TrimSpace(predicate))
	if match == nil {
		return errors.Newf(errors.ErrTypeGuard,
			"predicate must be a single equality on %s", schema.IdentifierColumn)
	}

	literal := strings.ReplaceAll(match[1], "''", "'")
	if literal != identifier {
		return errors.New(errors.ErrTypeGuard, "predicate is not bound to the requested patient")
	}

	return nil
}

// SanitizeStatement normalizes a drafted statement. Code fences and a
// trailing semicolon are cosmetic; everything else is left for the
// guard to judge.
func SanitizeStatement(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")

		// Drop a language tag such as "sql" on the opening fence line.
		if i := strings.Index(s, "\n"); i >= 0 && len(strings.Fields(s[:i])) <= 1 {
			s = s[i+1:]
		}

		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	s = strings.TrimSuffix(s, ";")

	return strings.TrimSpace(s)
}

// SafeTemplate renders the locally known-good statement for one
// patient. The rendered text goes through the guard like any draft.
func SafeTemplate(identifier string, fields []string) string {
	cols := []string{schema.IdentifierColumn}

	for _, field := range fields {
		if !strings.EqualFold(field, schema.IdentifierColumn) {
			cols = append(cols, field)
		}
	}

	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = '%s'",
		strings.Join(cols, ", "), schema.Table,
		schema.IdentifierColumn, strings.ReplaceAll(identifier, "'", "''"))
}
