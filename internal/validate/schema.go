package validate

import (
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kestrelhq/fsbroker/internal/errors"
)

// Schema is a compiled JSON schema. Compile once and reuse; compiled schemas
// are safe for concurrent use.
type Schema struct {
	name     string
	compiled *jsonschema.Schema
}

// CompileSchema compiles a JSON schema document. The name identifies the
// schema in error messages and must be non-empty.
func CompileSchema(name string, doc []byte) (*Schema, error) {
	if name == "" {
		name = "schema.json"
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource %s: %w", name, err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	return &Schema{name: name, compiled: compiled}, nil
}

// Name returns the schema's identifier.
func (s *Schema) Name() string { return s.name }

// Validate checks a decoded JSON value against the schema. On failure it
// returns a *errors.ValidationError carrying every violation found, not just
// the first.
func (s *Schema) Validate(value any) error {
	err := s.compiled.Validate(value)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err
	}

	violations := flatten(verr, nil)
	return errors.NewValidationError(violations)
}

// flatten walks the validation error tree and collects leaf violations.
// Intermediate nodes only restate their children, so leaves carry the
// actionable messages.
func flatten(verr *jsonschema.ValidationError, out []string) []string {
	if len(verr.Causes) == 0 {
		loc := verr.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return append(out, fmt.Sprintf("%s: %s", loc, verr.Message))
	}
	for _, cause := range verr.Causes {
		out = flatten(cause, out)
	}
	return out
}
