package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinicops/chartquery/internal/errors"
	"github.com/clinicops/chartquery/internal/llm"
	"github.com/clinicops/chartquery/internal/logging"
	"github.com/clinicops/chartquery/internal/schema"
)

// GuardedQuery is a statement the guard accepted, together with the
// request it serves. Rewritten reports that the model's draft was
// discarded and the statement rendered from the local template.
type GuardedQuery struct {
	SQL        string
	Identifier string
	Fields     []string
	Rewritten  bool
}

// Builder drafts statements with the generation backend and validates
// them before they are returned.
type Builder struct {
	generator llm.Generator
	catalog   *schema.Catalog
	guard     *Guard
}

// NewBuilder creates a Builder.
func NewBuilder(generator llm.Generator, catalog *schema.Catalog) *Builder {
	return &Builder{
		generator: generator,
		catalog:   catalog,
		guard:     NewGuard(catalog),
	}
}

const draftDirective = `You are writing one DuckDB SQL statement for a clinical records table
named %s. The table's columns are:

%s
Write a single SELECT statement that returns the columns %s for the
patient whose %s equals '%s'. Select only from %s, filter only on that
one equality, and add no other clauses. Reply with the SQL statement
and nothing else.`

// Build returns a guard-validated statement selecting fields for the
// patient. The draft is advisory: when drafting faults or the guard
// rejects the draft, the statement is rendered from the local template
// instead. That rewrite happens at most once per request and the
// rendered text passes through the same guard.
func (b *Builder) Build(ctx context.Context, identifier string, fields []string) (*GuardedQuery, error) {
	if identifier == "" {
		return nil, errors.New(errors.ErrTypeValidation, "identifier is required")
	}

	if len(fields) == 0 {
		return nil, errors.New(errors.ErrTypeValidation, "at least one field is required")
	}

	for _, field := range fields {
		if _, ok := b.catalog.Lookup(field); !ok {
			return nil, errors.Newf(errors.ErrTypeValidation, "unknown field %q", field)
		}
	}

	draft, err := b.draft(ctx, identifier, fields)
	if err != nil {
		logging.Warnf("statement drafting faulted, rewriting from template: %v", err)
	} else if guardErr := b.guard.Validate(draft, identifier, fields); guardErr != nil {
		logging.Warnf("guard rejected drafted statement, rewriting from template: %v", guardErr)
	} else {
		return &GuardedQuery{
			SQL:        draft,
			Identifier: identifier,
			Fields:     fields,
		}, nil
	}

	rendered := SafeTemplate(identifier, fields)
	if guardErr := b.guard.Validate(rendered, identifier, fields); guardErr != nil {
		return nil, errors.Wrap(guardErr, errors.ErrTypeInternal,
			"template statement failed validation")
	}

	return &GuardedQuery{
		SQL:        rendered,
		Identifier: identifier,
		Fields:     fields,
		Rewritten:  true,
	}, nil
}

func (b *Builder) draft(ctx context.Context, identifier string, fields []string) (string, error) {
	cols := append([]string{schema.IdentifierColumn}, fields...)

	prompt := fmt.Sprintf(draftDirective,
		schema.Table, b.catalog.PromptText(), strings.Join(cols, ", "),
		schema.IdentifierColumn, identifier, schema.Table)

	completion, err := b.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	return SanitizeStatement(completion), nil
}
