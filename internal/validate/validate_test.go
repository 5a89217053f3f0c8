package validate

import (
	"encoding/json"
	"testing"

	"github.com/kestrelhq/fsbroker/internal/errors"
)

func TestHashStability(t *testing.T) {
	content := []byte(`{"a":1}`)

	if Hash(content) != Hash([]byte(`{"a":1}`)) {
		t.Error("identical content should hash identically")
	}
	if Hash(content) == Hash([]byte(`{"a":2}`)) {
		t.Error("different content should hash differently")
	}
}

func TestHashString(t *testing.T) {
	got := HashString([]byte("hello"))
	if len(got) != 16 {
		t.Errorf("HashString() length = %d, want 16", len(got))
	}
	if got != HashString([]byte("hello")) {
		t.Error("HashString() should be deterministic")
	}
}

func TestHashEmpty(t *testing.T) {
	// Empty content is a legal input (not-yet-created watched files).
	if HashString(nil) != HashString([]byte{}) {
		t.Error("nil and empty content should hash identically")
	}
}

const stateSchema = `{
	"type": "object",
	"required": ["name", "version"],
	"properties": {
		"name": {"type": "string"},
		"version": {"type": "integer"},
		"tags": {"type": "array", "items": {"type": "string"}}
	}
}`

func compileTestSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := CompileSchema("state.json", []byte(stateSchema))
	if err != nil {
		t.Fatalf("CompileSchema() error: %v", err)
	}
	return s
}

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("invalid test JSON: %v", err)
	}
	return v
}

func TestSchemaValidate(t *testing.T) {
	s := compileTestSchema(t)

	tests := []struct {
		name           string
		raw            string
		wantViolations int
	}{
		{
			name: "valid document",
			raw:  `{"name": "feature", "version": 2, "tags": ["a"]}`,
		},
		{
			name:           "missing required field",
			raw:            `{"name": "feature"}`,
			wantViolations: 1,
		},
		{
			name:           "wrong type",
			raw:            `{"name": "feature", "version": "two"}`,
			wantViolations: 1,
		},
		{
			name:           "multiple violations all reported",
			raw:            `{"version": "two", "tags": [1, 2]}`,
			wantViolations: 4, // missing name, version type, two tag item types
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(decode(t, tt.raw))
			if tt.wantViolations == 0 {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}

			var verr *errors.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %T, want *errors.ValidationError", err)
			}
			if len(verr.Violations) < tt.wantViolations {
				t.Errorf("violations = %d (%v), want at least %d", len(verr.Violations), verr.Violations, tt.wantViolations)
			}
		})
	}
}

func TestCompileSchemaInvalid(t *testing.T) {
	if _, err := CompileSchema("bad.json", []byte(`{"type": 42}`)); err == nil {
		t.Error("CompileSchema() should reject an invalid schema document")
	}
}

func TestSchemaName(t *testing.T) {
	s := compileTestSchema(t)
	if s.Name() != "state.json" {
		t.Errorf("Name() = %q, want %q", s.Name(), "state.json")
	}

	unnamed, err := CompileSchema("", []byte(`{"type": "object"}`))
	if err != nil {
		t.Fatalf("CompileSchema() error: %v", err)
	}
	if unnamed.Name() == "" {
		t.Error("Name() should default to a non-empty identifier")
	}
}
