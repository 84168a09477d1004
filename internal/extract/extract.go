// Package extract recovers the two routable facts from a natural-language
// question: the patient identifier and the catalog columns the question
// asks about. Model faults and unusable completions degrade to absence;
// the router turns absence into the no-data path, never into an error.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/clinicops/chartquery/internal/llm"
	"github.com/clinicops/chartquery/internal/logging"
	"github.com/clinicops/chartquery/internal/schema"
)

// Result carries what could be recovered from the question. An empty
// Identifier means the question named no patient the model could find,
// or that extraction faulted. Fields holds canonical catalog column
// names in first-mention order, never the identifier column itself.
type Result struct {
	Identifier string
	Fields     []string
}

// Extractor resolves questions against a column catalog using a
// generation backend.
type Extractor struct {
	generator llm.Generator
	catalog   *schema.Catalog
}

// New creates an Extractor.
func New(generator llm.Generator, catalog *schema.Catalog) *Extractor {
	return &Extractor{
		generator: generator,
		catalog:   catalog,
	}
}

const identifierDirective = `You are reading a question about a patient's medical record.
Extract the patient identifier from the question below. Reply with the
identifier exactly as it appears in the question, and nothing else. If
the question does not contain a patient identifier, reply with the
single word none.

Question: %s`

const fieldsDirective = `You are selecting database columns to answer a question about a
patient's medical record. The available columns are listed below as
name and description pairs.

%s
Question: %s

Reply with a JSON array of the column names relevant to the question,
for example ["Diagnosis", "MedicationRe"]. Use only names from the
list. If no columns are relevant, reply with [].`

// Extract runs identifier extraction and field resolution. The two
// completions are independent, so they run concurrently. Extract never
// fails: each fault is logged and its value left absent.
func (e *Extractor) Extract(ctx context.Context, question string) Result {
	var result Result

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		result.Identifier = e.extractIdentifier(gctx, question)
		return nil
	})

	g.Go(func() error {
		result.Fields = e.resolveFields(gctx, question)
		return nil
	})

	_ = g.Wait()

	return result
}

func (e *Extractor) extractIdentifier(ctx context.Context, question string) string {
	completion, err := e.generator.Generate(ctx, fmt.Sprintf(identifierDirective, question))
	if err != nil {
		logging.Warnf("identifier extraction faulted, treating as absent: %v", err)
		return ""
	}

	return SanitizeIdentifier(completion, question)
}

func (e *Extractor) resolveFields(ctx context.Context, question string) []string {
	prompt := fmt.Sprintf(fieldsDirective, e.catalog.PromptText(), question)

	completion, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		logging.Warnf("field resolution faulted, treating as absent: %v", err)
		return nil
	}

	return e.groundMentions(ParseFieldList(completion), question)
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,32}$`)

var absenceMarkers = map[string]bool{
	"none":  true,
	"null":  true,
	"no":    true,
	"n/a":   true,
	"empty": true,
}

// SanitizeIdentifier validates a completion claiming to hold the patient
// identifier. The cleaned value must be a short alphanumeric token that
// appears in the question itself; anything else, including the absence
// markers models reply with, degrades to "". The returned spelling is
// the question's, not the model's, so the store comparison stays exact.
func SanitizeIdentifier(completion, question string) string {
	s := strings.TrimSpace(completion)
	s = strings.Trim(s, "`'\".")
	s = strings.TrimSpace(s)

	if s == "" || absenceMarkers[strings.ToLower(s)] {
		return ""
	}

	if !identifierPattern.MatchString(s) {
		return ""
	}

	idx := strings.Index(strings.ToLower(question), strings.ToLower(s))
	if idx < 0 {
		return ""
	}

	return question[idx : idx+len(s)]
}

// ParseFieldList recovers column mentions from a completion. It accepts
// a JSON array, optionally inside a code fence or surrounding prose, and
// falls back to splitting on commas and newlines when no array parses.
func ParseFieldList(completion string) []string {
	s := stripCodeFence(completion)

	if start, end := strings.Index(s, "["), strings.LastIndex(s, "]"); start >= 0 && end > start {
		var items []string
		if err := json.Unmarshal([]byte(s[start:end+1]), &items); err == nil {
			return cleanMentions(items)
		}
	}

	return cleanMentions(strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n'
	}))
}

func cleanMentions(items []string) []string {
	var out []string

	for _, item := range items {
		item = strings.TrimSpace(item)
		item = strings.Trim(item, "`'\"-*")
		item = strings.TrimSpace(item)

		if item != "" {
			out = append(out, item)
		}
	}

	return out
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")

	// Drop a language tag on the opening fence line.
	if i := strings.Index(s, "\n"); i >= 0 && !strings.ContainsAny(s[:i], "[]{}") {
		s = s[i+1:]
	}

	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	return strings.TrimSpace(s)
}

// groundMentions maps free-text mentions onto catalog columns. Exact
// names win; otherwise synonym matching grounds the mention. Unknown
// mentions are dropped so the resolved set is always a subset of the
// catalog. The identifier column is excluded: it joins every query
// anyway and is not an answerable field.
func (e *Extractor) groundMentions(mentions []string, question string) []string {
	var fields []string

	seen := make(map[string]bool)

	add := func(entry schema.Entry) {
		if strings.EqualFold(entry.Name, schema.IdentifierColumn) {
			return
		}

		key := strings.ToLower(entry.Name)
		if !seen[key] {
			seen[key] = true

			fields = append(fields, entry.Name)
		}
	}

	for _, mention := range mentions {
		if entry, ok := e.catalog.Lookup(mention); ok {
			add(entry)
			continue
		}

		// A bare stem expands through its side-suffix pair.
		if right, left, ok := e.catalog.SidePair(mention); ok {
			add(right)
			add(left)
			continue
		}

		for _, entry := range e.catalog.MatchSynonym(mention) {
			add(entry)
		}
	}

	return e.resolveEyeSide(fields, question)
}

// resolveEyeSide narrows side-qualified pairs to the eye the question
// names, and widens a lone half to the full pair when it names none.
func (e *Extractor) resolveEyeSide(fields []string, question string) []string {
	words := " " + normalizeWords(question) + " "
	right := strings.Contains(words, " right ") || strings.Contains(words, " od ")
	left := strings.Contains(words, " left ") || strings.Contains(words, " os ")

	var out []string

	seen := make(map[string]bool)

	add := func(name string) {
		key := strings.ToLower(name)
		if !seen[key] {
			seen[key] = true

			out = append(out, name)
		}
	}

	for _, name := range fields {
		if !e.catalog.IsSideQualified(name) {
			add(name)
			continue
		}

		counterpart, ok := e.catalog.Counterpart(name)
		if !ok {
			add(name)
			continue
		}

		switch {
		case right && !left:
			if e.catalog.IsRightEye(name) {
				add(name)
			} else {
				add(counterpart.Name)
			}
		case left && !right:
			if e.catalog.IsLeftEye(name) {
				add(name)
			} else {
				add(counterpart.Name)
			}
		default:
			add(name)
			add(counterpart.Name)
		}
	}

	return out
}

// normalizeWords lowercases and strips punctuation so side words match
// regardless of phrasing.
func normalizeWords(s string) string {
	var b strings.Builder

	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
