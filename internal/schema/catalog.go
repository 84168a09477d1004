// Package schema holds the knowledge base describing the patient record
// table: every canonical field name, its clinical description, and its
// category. The catalog is loaded once at startup and is read-only for the
// lifetime of the process; every other component grounds free-text field
// mentions and generated query text against it.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/clinicops/chartquery/internal/errors"
)

const (
	// Table is the single record table every guarded query reads from.
	Table = "patients"

	// IdentifierColumn keys one patient across visit rows.
	IdentifierColumn = "Anonymous_Uid"

	rightSuffix = "Re"
	leftSuffix  = "Le"
)

//go:embed knowledge_base.json
var embeddedKnowledgeBase []byte

// Category classifies what kind of clinical attribute a field records.
type Category string

const (
	CategoryMedication Category = "Medication"
	CategoryDiagnosis  Category = "Diagnosis"
	CategoryEyeSide    Category = "EyeSide"
	CategoryOther      Category = "Other"
)

// Entry describes one canonical record field.
type Entry struct {
	Name        string
	Description string
	Category    Category
}

// Catalog is the immutable field knowledge base. Lookups are
// case-insensitive; Entries preserves definition order.
type Catalog struct {
	entries []Entry
	byName  map[string]int
}

// knowledgeBaseEntry mirrors the flat-export JSON convention.
type knowledgeBaseEntry struct {
	ColumnName  string `json:"Column Name"`
	Description string `json:"Description"`
	Category    string `json:"Category"`
}

// Load builds the catalog from the file at path, or from the embedded
// knowledge base when path is empty. Any defect in the definition is fatal:
// the process cannot serve requests without a valid catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(embeddedKnowledgeBase)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewCatalogError(
			fmt.Sprintf("failed to read knowledge base %s", path), err)
	}

	return Parse(data)
}

// Parse builds a catalog from raw knowledge base JSON.
func Parse(data []byte) (*Catalog, error) {
	var raw []knowledgeBaseEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewCatalogError("failed to parse knowledge base", err)
	}

	if len(raw) == 0 {
		return nil, errors.New(errors.ErrTypeCatalog, "knowledge base is empty")
	}

	catalog := &Catalog{
		entries: make([]Entry, 0, len(raw)),
		byName:  make(map[string]int, len(raw)),
	}

	for i, kb := range raw {
		name := strings.TrimSpace(kb.ColumnName)
		if name == "" {
			return nil, errors.Newf(errors.ErrTypeCatalog,
				"knowledge base entry %d has an empty column name", i)
		}

		key := strings.ToLower(name)
		if _, exists := catalog.byName[key]; exists {
			return nil, errors.Newf(errors.ErrTypeCatalog,
				"duplicate column name %q (names are unique ignoring case)", name)
		}

		category, err := parseCategory(kb.Category)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeCatalog,
				"entry %q has an invalid category", name)
		}

		catalog.byName[key] = len(catalog.entries)
		catalog.entries = append(catalog.entries, Entry{
			Name:        name,
			Description: strings.TrimSpace(kb.Description),
			Category:    category,
		})
	}

	if _, ok := catalog.Lookup(IdentifierColumn); !ok {
		return nil, errors.Newf(errors.ErrTypeCatalog,
			"knowledge base must define the identifier column %s", IdentifierColumn)
	}

	return catalog, nil
}

func parseCategory(raw string) (Category, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))

	switch normalized {
	case "medication", "medications":
		return CategoryMedication, nil
	case "diagnosis", "diagnoses":
		return CategoryDiagnosis, nil
	case "eyeside":
		return CategoryEyeSide, nil
	case "other", "n/a", "na", "":
		return CategoryOther, nil
	default:
		return "", fmt.Errorf("unknown category %q", raw)
	}
}

// Lookup finds an entry by name, ignoring case.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	idx, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Entry{}, false
	}

	return c.entries[idx], true
}

// Entries returns every entry in definition order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)

	return out
}

// FieldNames returns every canonical name in definition order.
func (c *Catalog) FieldNames() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name
	}

	return names
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// IsSideQualified reports whether name is one half of a right/left eye
// suffix pair. The counterpart must exist: a name merely ending in the
// suffix letters does not qualify.
func (c *Catalog) IsSideQualified(name string) bool {
	_, ok := c.Counterpart(name)
	return ok
}

// Counterpart returns the opposite-eye entry for a side-qualified field.
func (c *Catalog) Counterpart(name string) (Entry, bool) {
	entry, ok := c.Lookup(name)
	if !ok {
		return Entry{}, false
	}

	switch {
	case strings.HasSuffix(entry.Name, rightSuffix):
		return c.Lookup(strings.TrimSuffix(entry.Name, rightSuffix) + leftSuffix)
	case strings.HasSuffix(entry.Name, leftSuffix):
		return c.Lookup(strings.TrimSuffix(entry.Name, leftSuffix) + rightSuffix)
	default:
		return Entry{}, false
	}
}

// IsRightEye reports whether name is the right-eye half of a suffix pair.
func (c *Catalog) IsRightEye(name string) bool {
	entry, ok := c.Lookup(name)
	return ok && strings.HasSuffix(entry.Name, rightSuffix) && c.IsSideQualified(name)
}

// IsLeftEye reports whether name is the left-eye half of a suffix pair.
func (c *Catalog) IsLeftEye(name string) bool {
	entry, ok := c.Lookup(name)
	return ok && strings.HasSuffix(entry.Name, leftSuffix) && c.IsSideQualified(name)
}

// SidePair resolves a bare stem ("Medication") to its Re/Le pair.
func (c *Catalog) SidePair(stem string) (right, left Entry, ok bool) {
	right, rightOK := c.Lookup(stem + rightSuffix)
	left, leftOK := c.Lookup(stem + leftSuffix)

	if !rightOK || !leftOK {
		return Entry{}, Entry{}, false
	}

	return right, left, true
}

// PromptText renders the catalog as a name: description block for
// generation directives.
func (c *Catalog) PromptText() string {
	var b strings.Builder
	for _, e := range c.entries {
		fmt.Fprintf(&b, "%s: %s\n", e.Name, e.Description)
	}

	return b.String()
}

// Category keywords recognized by MatchSynonym. EyeSide and Other carry no
// keywords: "eye" alone is too broad to ground a field mention.
var categoryKeywords = map[Category][]string{
	CategoryMedication: {"medication", "medications", "drug", "drugs", "prescription", "prescriptions", "prescribed"},
	CategoryDiagnosis:  {"diagnosis", "diagnoses", "diagnosed", "condition", "conditions"},
}

// MatchSynonym grounds free-text field mentions against the catalog. An
// entry matches when the text contains its camel-case name phrase (side
// suffix ignored), an alias parenthesized in its description, or a keyword
// of its category. Matches come back in definition order.
func (c *Catalog) MatchSynonym(text string) []Entry {
	normalized := normalizeText(text)
	if normalized == "" {
		return nil
	}

	tokens := tokenSet(normalized)

	var matches []Entry

	for _, e := range c.entries {
		if c.entryMatches(e, normalized, tokens) {
			matches = append(matches, e)
		}
	}

	return matches
}

func (c *Catalog) entryMatches(e Entry, normalized string, tokens map[string]bool) bool {
	phrase := camelPhrase(c.sideStem(e.Name))
	if len(phrase) >= 3 && strings.Contains(normalized, phrase) {
		return true
	}

	for _, alias := range parenAliases(e.Description) {
		if tokens[alias] {
			return true
		}
	}

	for _, keyword := range categoryKeywords[e.Category] {
		if tokens[keyword] {
			return true
		}
	}

	return false
}

// sideStem strips the eye-side suffix from side-qualified names so that
// "visual acuity" grounds both VisualAcuityRe and VisualAcuityLe.
func (c *Catalog) sideStem(name string) string {
	if !c.IsSideQualified(name) {
		return name
	}

	if strings.HasSuffix(name, rightSuffix) {
		return strings.TrimSuffix(name, rightSuffix)
	}

	return strings.TrimSuffix(name, leftSuffix)
}

// camelPhrase converts a CamelCase column name into a lowercase spaced
// phrase: "VisualAcuity" -> "visual acuity".
func camelPhrase(name string) string {
	var b strings.Builder

	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}

		b.WriteRune(r)
	}

	return strings.ToLower(strings.ReplaceAll(b.String(), "_", " "))
}

// parenAliases pulls short parenthesized aliases out of a description:
// "Intraocular pressure (IOP) ..." -> ["iop"].
func parenAliases(description string) []string {
	var aliases []string

	rest := description
	for {
		open := strings.IndexByte(rest, '(')
		if open < 0 {
			break
		}

		closing := strings.IndexByte(rest[open:], ')')
		if closing < 0 {
			break
		}

		alias := strings.ToLower(strings.TrimSpace(rest[open+1 : open+closing]))
		if alias != "" && !strings.ContainsAny(alias, " \t") {
			aliases = append(aliases, alias)
		}

		rest = rest[open+closing+1:]
	}

	return aliases
}

func normalizeText(text string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, text)

	return strings.Join(strings.Fields(mapped), " ")
}

func tokenSet(normalized string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(normalized) {
		tokens[tok] = true
	}

	return tokens
}
