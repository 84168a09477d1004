package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicops/chartquery/internal/errors"
)

func loadDefault(t *testing.T) *Catalog {
	t.Helper()

	catalog, err := Load("")
	require.NoError(t, err)

	return catalog
}

func TestLoadEmbedded(t *testing.T) {
	catalog := loadDefault(t)

	assert.GreaterOrEqual(t, catalog.Len(), 10)

	entry, ok := catalog.Lookup(IdentifierColumn)
	require.True(t, ok)
	assert.Equal(t, "Anonymous_Uid", entry.Name)
	assert.Equal(t, CategoryOther, entry.Category)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.json")
	content := `[
		{"Column Name": "Anonymous_Uid", "Description": "Patient id", "Category": "Other"},
		{"Column Name": "Diagnosis", "Description": "Diagnosis", "Category": "Diagnosis"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	catalog, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Len())
}

func TestLoadFileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeCatalog))
}

func TestParseRejectsDefects(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr string
	}{
		{
			name:    "malformed json",
			json:    `{"Column Name": "oops"`,
			wantErr: "failed to parse",
		},
		{
			name:    "empty list",
			json:    `[]`,
			wantErr: "empty",
		},
		{
			name: "empty column name",
			json: `[
				{"Column Name": "Anonymous_Uid", "Description": "id", "Category": "Other"},
				{"Column Name": "  ", "Description": "x", "Category": "Other"}
			]`,
			wantErr: "empty column name",
		},
		{
			name: "duplicate ignoring case",
			json: `[
				{"Column Name": "Anonymous_Uid", "Description": "id", "Category": "Other"},
				{"Column Name": "Diagnosis", "Description": "x", "Category": "Diagnosis"},
				{"Column Name": "DIAGNOSIS", "Description": "y", "Category": "Diagnosis"}
			]`,
			wantErr: "duplicate column name",
		},
		{
			name: "unknown category",
			json: `[
				{"Column Name": "Anonymous_Uid", "Description": "id", "Category": "Other"},
				{"Column Name": "Diagnosis", "Description": "x", "Category": "Billing"}
			]`,
			wantErr: "invalid category",
		},
		{
			name: "missing identifier column",
			json: `[
				{"Column Name": "Diagnosis", "Description": "x", "Category": "Diagnosis"}
			]`,
			wantErr: "identifier column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.json))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeCatalog))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		raw      string
		expected Category
	}{
		{"Medication", CategoryMedication},
		{"medications", CategoryMedication},
		{"Diagnosis", CategoryDiagnosis},
		{"Eye Side", CategoryEyeSide},
		{"EyeSide", CategoryEyeSide},
		{"Other", CategoryOther},
		{"N/A", CategoryOther},
		{"", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseCategory(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := parseCategory("Billing")
	assert.Error(t, err)
}

func TestLookupCaseInsensitive(t *testing.T) {
	catalog := loadDefault(t)

	for _, name := range []string{"medicationre", "MEDICATIONRE", "MedicationRe", " medicationre "} {
		entry, ok := catalog.Lookup(name)
		require.True(t, ok, "lookup %q", name)
		assert.Equal(t, "MedicationRe", entry.Name, "canonical casing survives lookup")
	}

	_, ok := catalog.Lookup("BloodType")
	assert.False(t, ok)
}

func TestEntriesAreACopy(t *testing.T) {
	catalog := loadDefault(t)

	entries := catalog.Entries()
	entries[0].Name = "Tampered"

	fresh := catalog.Entries()
	assert.NotEqual(t, "Tampered", fresh[0].Name)
}

func TestFieldNamesOrder(t *testing.T) {
	catalog := loadDefault(t)

	names := catalog.FieldNames()
	require.NotEmpty(t, names)
	assert.Equal(t, "Anonymous_Uid", names[0], "identifier is defined first")
	assert.Len(t, names, catalog.Len())
}

func TestSideQualification(t *testing.T) {
	catalog := loadDefault(t)

	assert.True(t, catalog.IsSideQualified("MedicationRe"))
	assert.True(t, catalog.IsSideQualified("medicationle"))
	assert.False(t, catalog.IsSideQualified("Diagnosis"))
	assert.False(t, catalog.IsSideQualified("NotAField"))

	assert.True(t, catalog.IsRightEye("IopRe"))
	assert.False(t, catalog.IsRightEye("IopLe"))
	assert.True(t, catalog.IsLeftEye("FindingsLe"))
	assert.False(t, catalog.IsLeftEye("Advice"))

	counterpart, ok := catalog.Counterpart("VisualAcuityRe")
	require.True(t, ok)
	assert.Equal(t, "VisualAcuityLe", counterpart.Name)

	_, ok = catalog.Counterpart("ChiefComplaint")
	assert.False(t, ok)
}

func TestSideQualificationRequiresCounterpart(t *testing.T) {
	// "Pressure" ends in lowercase "re" and has no pair: not side-qualified.
	content := `[
		{"Column Name": "Anonymous_Uid", "Description": "id", "Category": "Other"},
		{"Column Name": "Pressure", "Description": "x", "Category": "Other"},
		{"Column Name": "OrphanRe", "Description": "x", "Category": "Eye Side"}
	]`

	catalog, err := Parse([]byte(content))
	require.NoError(t, err)

	assert.False(t, catalog.IsSideQualified("Pressure"))
	assert.False(t, catalog.IsSideQualified("OrphanRe"), "suffix without a counterpart does not qualify")
}

func TestSidePair(t *testing.T) {
	catalog := loadDefault(t)

	right, left, ok := catalog.SidePair("Medication")
	require.True(t, ok)
	assert.Equal(t, "MedicationRe", right.Name)
	assert.Equal(t, "MedicationLe", left.Name)

	_, _, ok = catalog.SidePair("Diagnosis")
	assert.False(t, ok)
}

func TestCamelPhrase(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"VisualAcuity", "visual acuity"},
		{"Iop", "iop"},
		{"ChiefComplaint", "chief complaint"},
		{"Anonymous_Uid", "anonymous  uid"},
		{"Diagnosis", "diagnosis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, camelPhrase(tt.name))
		})
	}
}

func TestParenAliases(t *testing.T) {
	assert.Equal(t, []string{"iop"}, parenAliases("Intraocular pressure (IOP) of the right eye"))
	assert.Equal(t, []string{"va"}, parenAliases("Visual acuity (VA) recorded"))
	assert.Empty(t, parenAliases("No aliases here"))
	assert.Empty(t, parenAliases("Multi word (not an alias) text"))
}

func TestMatchSynonym(t *testing.T) {
	catalog := loadDefault(t)

	tests := []struct {
		name         string
		text         string
		wantNames    []string
		requireEmpty bool
	}{
		{
			name:      "category keyword medications",
			text:      "What medications is this patient taking?",
			wantNames: []string{"MedicationRe", "MedicationLe", "SystemicMedication"},
		},
		{
			name:      "name phrase across side pair",
			text:      "show visual acuity for the last visit",
			wantNames: []string{"VisualAcuityRe", "VisualAcuityLe"},
		},
		{
			name:      "description alias",
			text:      "what was the IOP?",
			wantNames: []string{"IopRe", "IopLe"},
		},
		{
			name:      "diagnosis keyword",
			text:      "list all diagnoses",
			wantNames: []string{"Diagnosis", "DiagnosisProvisional"},
		},
		{
			name:         "nothing clinical",
			text:         "hello there",
			requireEmpty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := catalog.MatchSynonym(tt.text)

			if tt.requireEmpty {
				assert.Empty(t, matches)
				return
			}

			var names []string
			for _, e := range matches {
				names = append(names, e.Name)
			}

			for _, want := range tt.wantNames {
				assert.Contains(t, names, want)
			}
		})
	}
}

func TestMatchSynonymDefinitionOrder(t *testing.T) {
	catalog := loadDefault(t)

	matches := catalog.MatchSynonym("visual acuity and iop both please")
	require.GreaterOrEqual(t, len(matches), 4)

	var lastIdx int
	for _, m := range matches {
		idx := -1
		for i, name := range catalog.FieldNames() {
			if name == m.Name {
				idx = i
				break
			}
		}

		require.GreaterOrEqual(t, idx, lastIdx, "matches keep definition order")
		lastIdx = idx
	}
}

func TestPromptText(t *testing.T) {
	catalog := loadDefault(t)

	text := catalog.PromptText()
	assert.Contains(t, text, "Anonymous_Uid: ")
	assert.Contains(t, text, "MedicationRe: Medication prescribed for the right eye")
}
