package task

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// CompiledSchema wraps a compiled JSON Schema document used to validate a
// nested attribute value end-to-end instead of (or alongside) a hand-written
// Nested attribute tree — see SPEC_FULL.md §11 domain stack.
type CompiledSchema struct {
	schema *jsonschema.Schema
	source string
}

// CompileJSONSchema parses and compiles a JSON Schema document. It is meant
// to be called once at Definition-construction time; a compile failure is a
// programmer error and is returned rather than panicking so callers can
// surface it during startup validation.
func CompileJSONSchema(name string, document []byte) (*CompiledSchema, error) {
	var raw any
	if err := json.Unmarshal(document, &raw); err != nil {
		return nil, fmt.Errorf("task: invalid json schema %q: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, raw); err != nil {
		return nil, fmt.Errorf("task: add json schema resource %q: %w", name, err)
	}
	sch, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("task: compile json schema %q: %w", name, err)
	}
	return &CompiledSchema{schema: sch, source: name}, nil
}

// Validate checks value (any JSON-marshalable Go value) against the compiled
// schema, returning one message per violation.
func (c *CompiledSchema) Validate(value any) []string {
	if c == nil || c.schema == nil {
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return []string{fmt.Sprintf("could not marshal value for schema %s: %v", c.source, err)}
	}
	var inst any
	if err := json.Unmarshal(b, &inst); err != nil {
		return []string{fmt.Sprintf("could not unmarshal value for schema %s: %v", c.source, err)}
	}
	if err := c.schema.Validate(inst); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return flattenValidationError(ve)
		}
		return []string{err.Error()}
	}
	return nil
}

func flattenValidationError(ve *jsonschema.ValidationError) []string {
	var msgs []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			msgs = append(msgs, e.Error())
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return msgs
}
