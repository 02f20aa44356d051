package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
	"github.com/sourcegraph/conc/panics"
	"github.com/xeipuuv/gojsonschema"
)

// ErrUnknownTool is the error text returned for names outside the registry.
const ErrUnknownTool = "unknown tool"

// Registry is the dispatch table for a fixed set of tools. Every call is
// schema-validated before the tool runs, and nothing a tool does (error or
// panic) escapes Call as anything but a failed Result.
type Registry struct {
	tools     map[string]ports.Tool
	validator *JSONValidator
	order     []string
}

// NewRegistry compiles each tool's schema. Duplicate names and invalid
// schemas are programming errors and fail construction.
func NewRegistry(tools ...ports.Tool) (*Registry, error) {
	r := &Registry{
		tools:     make(map[string]ports.Tool, len(tools)),
		validator: NewJSONValidator(),
	}

	for _, tool := range tools {
		name := tool.Name()
		if _, dup := r.tools[name]; dup {
			return nil, fmt.Errorf("duplicate tool: %s", name)
		}
		if err := r.validator.Compile(name, tool.Schema()); err != nil {
			return nil, fmt.Errorf("invalid schema for tool %s: %w", name, err)
		}

		r.tools[name] = tool
		r.order = append(r.order, name)
	}

	return r, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Names lists registered tools in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Specs returns the declarations sent to the reasoning engine.
func (r *Registry) Specs() []ports.ToolSpec {
	specs := make([]ports.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		specs = append(specs, ports.ToolSpec{
			Name:        name,
			Description: tool.Description(),
			JSONSchema:  tool.Schema(),
		})
	}
	return specs
}

// Call validates args against the tool's schema and invokes it.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) ports.Result {
	tool, ok := r.tools[name]
	if !ok {
		return ports.Fail(ErrUnknownTool)
	}

	if len(strings.TrimSpace(string(args))) == 0 {
		args = json.RawMessage(`{}`)
	}
	if err := r.validator.Validate(name, args); err != nil {
		return ports.Fail("invalid arguments: " + err.Error())
	}

	var (
		result ports.Result
		err    error
		pc     panics.Catcher
	)
	pc.Try(func() { result, err = tool.Invoke(ctx, args) })
	if rec := pc.Recovered(); rec != nil {
		return ports.Fail(fmt.Sprintf("tool %s panicked: %v", name, rec.Value))
	}
	if err != nil {
		return ports.Fail(err.Error())
	}
	if result == nil {
		return ports.Fail(fmt.Sprintf("tool %s returned no result", name))
	}
	return result
}

// JSONValidator validates documents against named schemas compiled once.
type JSONValidator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewJSONValidator creates a validator with no schemas.
func NewJSONValidator() *JSONValidator {
	return &JSONValidator{schemas: make(map[string]*gojsonschema.Schema)}
}

// Compile parses schema and stores it under name, replacing any earlier one.
func (v *JSONValidator) Compile(name string, schema []byte) error {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		return err
	}
	v.schemas[name] = compiled
	return nil
}

// Validate checks data against the schema compiled under name. A name with
// no schema accepts any valid JSON.
func (v *JSONValidator) Validate(name string, data json.RawMessage) error {
	if !json.Valid(data) {
		return fmt.Errorf("not valid JSON")
	}

	schema, ok := v.schemas[name]
	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("%s", joinErrors(result.Errors()))
	}
	return nil
}

func joinErrors(errs []gojsonschema.ResultError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.String())
	}
	return strings.Join(msgs, "; ")
}
