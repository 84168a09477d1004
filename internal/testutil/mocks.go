package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/clinicops/chartquery/internal/storage"
)

// MockGenerator implements llm.Generator with scripted completions and
// error injection keyed on prompt markers.
type MockGenerator struct {
	mu sync.RWMutex

	completions map[string]string
	errors      map[string]error
	fallback    string
	prompts     []string
}

// GeneratorOption is a functional option for configuring MockGenerator
type GeneratorOption func(*MockGenerator)

// WithCompletion scripts the completion returned for prompts containing
// the marker
func WithCompletion(marker, completion string) GeneratorOption {
	return func(m *MockGenerator) {
		m.completions[marker] = completion
	}
}

// WithFallbackCompletion sets the completion for unmatched prompts
func WithFallbackCompletion(completion string) GeneratorOption {
	return func(m *MockGenerator) {
		m.fallback = completion
	}
}

// WithGenerateError injects an error for prompts containing the marker
func WithGenerateError(marker string, err error) GeneratorOption {
	return func(m *MockGenerator) {
		m.errors[marker] = err
	}
}

// NewMockGenerator creates a new mock generator with the given options
func NewMockGenerator(opts ...GeneratorOption) *MockGenerator {
	mock := &MockGenerator{
		completions: make(map[string]string),
		errors:      make(map[string]error),
	}

	for _, opt := range opts {
		opt(mock)
	}

	return mock
}

// Generate returns the scripted completion for the first matching
// marker, the injected error otherwise, then the fallback.
func (m *MockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)

	for marker, err := range m.errors {
		if strings.Contains(prompt, marker) {
			return "", err
		}
	}

	for marker, completion := range m.completions {
		if strings.Contains(prompt, marker) {
			return completion, nil
		}
	}

	return m.fallback, nil
}

// Calls returns the number of Generate invocations
func (m *MockGenerator) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.prompts)
}

// Prompts returns every prompt Generate received, in order
func (m *MockGenerator) Prompts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.prompts))
	copy(out, m.prompts)

	return out
}

// PromptContaining returns the first recorded prompt containing marker
func (m *MockGenerator) PromptContaining(marker string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, prompt := range m.prompts {
		if strings.Contains(prompt, marker) {
			return prompt, true
		}
	}

	return "", false
}

// MockRepository implements storage.Repository for testing with
// configurable rows, stats, and per-operation error injection.
type MockRepository struct {
	mu sync.RWMutex

	rows       []storage.RecordRow
	stats      *storage.Stats
	imported   int64
	errors     map[string]error
	callCounts map[string]int
	statements []string
}

// RepositoryOption is a functional option for configuring MockRepository
type RepositoryOption func(*MockRepository)

// WithRows sets the rows FetchRecords returns
func WithRows(rows ...storage.RecordRow) RepositoryOption {
	return func(m *MockRepository) {
		m.rows = rows
	}
}

// WithStats sets the stats GetStats returns
func WithStats(stats *storage.Stats) RepositoryOption {
	return func(m *MockRepository) {
		m.stats = stats
	}
}

// WithImportedCount sets the row count ImportCSV reports
func WithImportedCount(n int64) RepositoryOption {
	return func(m *MockRepository) {
		m.imported = n
	}
}

// WithRepositoryError injects an error for one operation: "initialize",
// "fetch", "import", "stats", "clear", or "close"
func WithRepositoryError(operation string, err error) RepositoryOption {
	return func(m *MockRepository) {
		m.errors[operation] = err
	}
}

// NewMockRepository creates a new mock repository with the given options
func NewMockRepository(opts ...RepositoryOption) *MockRepository {
	mock := &MockRepository{
		stats:      &storage.Stats{},
		errors:     make(map[string]error),
		callCounts: make(map[string]int),
	}

	for _, opt := range opts {
		opt(mock)
	}

	return mock
}

// Initialize returns the configured error, if any
func (m *MockRepository) Initialize(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCounts["initialize"]++

	return m.errors["initialize"]
}

// FetchRecords records the statement and returns the configured rows
func (m *MockRepository) FetchRecords(_ context.Context, statement string) ([]storage.RecordRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCounts["fetch"]++
	m.statements = append(m.statements, statement)

	if err := m.errors["fetch"]; err != nil {
		return nil, err
	}

	return m.rows, nil
}

// ImportCSV returns the configured imported-row count
func (m *MockRepository) ImportCSV(_ context.Context, _ string, _ bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCounts["import"]++

	if err := m.errors["import"]; err != nil {
		return 0, err
	}

	return m.imported, nil
}

// GetStats returns the configured stats
func (m *MockRepository) GetStats(_ context.Context) (*storage.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCounts["stats"]++

	if err := m.errors["stats"]; err != nil {
		return nil, err
	}

	return m.stats, nil
}

// Clear returns the configured error, if any
func (m *MockRepository) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCounts["clear"]++

	return m.errors["clear"]
}

// Close returns the configured error, if any
func (m *MockRepository) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCounts["close"]++

	return m.errors["close"]
}

// CallCount returns the number of times an operation was called
func (m *MockRepository) CallCount(operation string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.callCounts[operation]
}

// Statements returns every statement FetchRecords received, in order
func (m *MockRepository) Statements() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.statements))
	copy(out, m.statements)

	return out
}
