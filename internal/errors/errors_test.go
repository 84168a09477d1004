package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ErrTypeValidation, "test error message")

	assert.Equal(t, ErrTypeValidation, err.Type)
	assert.Equal(t, "test error message", err.Message)
	assert.NoError(t, err.Cause)
}

func TestNewf(t *testing.T) {
	err := Newf(ErrTypeStorage, "failed to open %s", "database")

	assert.Equal(t, ErrTypeStorage, err.Type)
	assert.Equal(t, "failed to open database", err.Message)
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(originalErr, ErrTypeRetrieval, "record fetch failed")

	assert.Equal(t, ErrTypeRetrieval, wrappedErr.Type)
	assert.Equal(t, "record fetch failed", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestWrapf(t *testing.T) {
	originalErr := errors.New("connection refused")
	wrappedErr := Wrapf(
		originalErr,
		ErrTypeGeneration,
		"completion request to %s failed after %d ms",
		"gemini",
		1500,
	)

	assert.Equal(t, ErrTypeGeneration, wrappedErr.Type)
	assert.Equal(t, "completion request to gemini failed after 1500 ms", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name: "error without cause",
			err: &Error{
				Type:    ErrTypeValidation,
				Message: "missing patient identifier",
			},
			expected: "validation: missing patient identifier",
		},
		{
			name: "error with cause",
			err: &Error{
				Type:    ErrTypeRetrieval,
				Message: "query failed",
				Cause:   errors.New("connection timeout"),
			},
			expected: "retrieval: query failed (caused by: connection timeout)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(originalErr, ErrTypeGeneration, "wrapped error")

	assert.Equal(t, originalErr, wrappedErr.Unwrap())
}

func TestWithSuggestion(t *testing.T) {
	err := New(ErrTypeConfig, "missing API key")
	err = err.WithSuggestion("Set CHARTQUERY_LLM_API_KEY in the environment")
	err = err.WithSuggestion("Check the provider setting matches your key")

	assert.Len(t, err.Suggestions, 2)
	assert.Contains(t, err.Suggestions, "Set CHARTQUERY_LLM_API_KEY in the environment")
	assert.Contains(t, err.Suggestions, "Check the provider setting matches your key")
}

func TestIsType(t *testing.T) {
	structErr := New(ErrTypeValidation, "validation error")
	regularErr := errors.New("regular error")

	assert.True(t, IsType(structErr, ErrTypeValidation))
	assert.False(t, IsType(structErr, ErrTypeStorage))
	assert.False(t, IsType(regularErr, ErrTypeValidation))
}

func TestIsTypeWrappedChain(t *testing.T) {
	inner := New(ErrTypeGuard, "unsafe query text")
	outer := Wrap(inner, ErrTypeInternal, "request failed")

	assert.True(t, IsType(outer, ErrTypeInternal))
	assert.False(t, IsType(outer, ErrTypeGuard), "outermost type wins for wrapped chains")
}

func TestGetType(t *testing.T) {
	structErr := New(ErrTypeRecursion, "hop limit reached")
	regularErr := errors.New("regular error")

	assert.Equal(t, ErrTypeRecursion, GetType(structErr))
	assert.Equal(t, ErrTypeInternal, GetType(regularErr))
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("invalid value", "log_level")

	assert.Equal(t, ErrTypeConfig, err.Type)
	assert.Contains(t, err.Message, "invalid value")
	assert.Contains(t, err.Message, "log_level")
	assert.Contains(t, err.Suggestions, "Check your configuration file syntax")
	assert.Contains(t, err.Suggestions, "Run 'chartquery config' to see the resolved configuration")
}

func TestNewConfigErrorEmptyField(t *testing.T) {
	err := NewConfigError("failed to load", "")

	assert.Equal(t, ErrTypeConfig, err.Type)
	assert.Equal(t, "failed to load", err.Message)
}

func TestNewCatalogError(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := NewCatalogError("failed to parse knowledge base", cause)

	assert.Equal(t, ErrTypeCatalog, err.Type)
	assert.Equal(t, cause, err.Cause)
	assert.NotEmpty(t, err.Suggestions)
}

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		errType  ErrorType
		expected string
	}{
		{ErrTypeExtraction, "extraction"},
		{ErrTypeValidation, "validation"},
		{ErrTypeGuard, "guard"},
		{ErrTypeRetrieval, "retrieval"},
		{ErrTypeRecursion, "recursion"},
		{ErrTypeGeneration, "generation"},
		{ErrTypeCatalog, "catalog"},
		{ErrTypeStorage, "storage"},
		{ErrTypeConfig, "config"},
		{ErrTypeInternal, "internal"},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}
