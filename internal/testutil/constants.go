// Package testutil provides shared fixtures for tests: scripted
// generation and storage doubles, visit builders, and the prompt
// markers that identify each generation directive.
package testutil

import "time"

const (
	// TestTimeout is the default timeout for test operations
	TestTimeout = 30 * time.Second

	// ShortTestTimeout is a shorter timeout for quick operations
	ShortTestTimeout = 5 * time.Second
)

// Prompt markers: distinctive phrases that identify which directive a
// generation prompt came from. MockGenerator responses are keyed on
// these so one mock can serve the whole pipeline.
const (
	// PromptIdentifier appears only in the identifier-extraction directive
	PromptIdentifier = "Extract the patient identifier"

	// PromptFields appears only in the field-resolution directive
	PromptFields = "JSON array"

	// PromptStatement appears only in the statement-drafting directive
	PromptStatement = "SELECT statement"

	// PromptSummary appears only in the summarization directive
	PromptSummary = "paragraph summary"
)

// Common fixture values
const (
	// TestPatientID is the default patient identifier in fixtures
	TestPatientID = "A102"

	// TestSecondPatientID keys fixtures that need a second patient
	TestSecondPatientID = "B777"

	// TestQuestion is a question the default fixtures can answer
	TestQuestion = "Show the right eye medications and diagnosis for patient A102."
)
