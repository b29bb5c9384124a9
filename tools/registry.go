package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/vinayprograms/taskman/errors"
	"github.com/vinayprograms/taskman/logging"
	"github.com/vinayprograms/taskman/search"
	"github.com/vinayprograms/taskman/store"
)

// Registry holds all registered tools and validates arguments against each
// tool's declared parameter schema before dispatch.
type Registry struct {
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
	order   []string
	log     *logging.Logger
}

// NewRegistry creates a registry with the task tools registered.
// The search index may be nil, in which case search_tasks is not offered.
func NewRegistry(st *store.Store, ix *search.Index, log *logging.Logger) (*Registry, error) {
	r := &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
		log:     log,
	}

	builtins := []Tool{
		&createTaskTool{store: st, index: ix, log: log},
		&listTasksTool{store: st},
		&updateTaskTool{store: st, index: ix, log: log},
		&completeTaskTool{store: st, index: ix, log: log},
		&deleteTaskTool{store: st, index: ix, log: log},
	}
	if ix != nil {
		builtins = append(builtins, &searchTasksTool{store: st, index: ix})
	}

	for _, t := range builtins {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool to the registry, compiling its parameter schema.
func (r *Registry) Register(t Tool) error {
	schema, err := compileSchema(t.Name(), t.Parameters())
	if err != nil {
		return fmt.Errorf("tool %s: %w", t.Name(), err)
	}
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
	r.schemas[t.Name()] = schema
	return nil
}

// compileSchema compiles a tool's parameter map into a validator.
func compileSchema(name string, params map[string]interface{}) (*jsonschema.Schema, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding parameter schema: %w", err)
	}

	url := "taskman://tools/" + name + "/schema.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("loading parameter schema: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compiling parameter schema: %w", err)
	}
	return schema, nil
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) Tool {
	return r.tools[name]
}

// Has returns true if the registry has a tool with the given name.
func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.tools[name]
	return ok
}

// Definitions returns client-facing definitions in registration order.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, Definition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
			Annotations: t.Annotations(),
		})
	}
	return defs
}

// Call validates the arguments against the tool's schema and executes it.
// A panic inside a tool is recovered and returned as an error; a bad
// request must never take the server down.
func (r *Registry) Call(ctx context.Context, name string, args map[string]interface{}) (result interface{}, err error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnsupported, "unknown tool %q", name)
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	if schema := r.schemas[name]; schema != nil {
		if verr := validateArgs(schema, args); verr != nil {
			return nil, verr
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = errors.RecoverPanic(rec)
			result = nil
		}
	}()
	return t.Execute(ctx, args)
}

// validateArgs checks arguments against a compiled schema. Arguments are
// round-tripped through JSON so the validator always sees canonical
// decoded types regardless of how the caller built the map.
func validateArgs(schema *jsonschema.Schema, args map[string]interface{}) error {
	data, err := json.Marshal(args)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeInvalidInput, "encoding arguments")
	}
	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeInvalidInput, "decoding arguments")
	}

	if err := schema.Validate(decoded); err != nil {
		return errors.InvalidInput(schemaErrorMessage(err))
	}
	return nil
}

// schemaErrorMessage extracts the most specific message from a schema
// validation error.
func schemaErrorMessage(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	leaf := leafValidationError(ve)
	if leaf.InstanceLocation != "" {
		return fmt.Sprintf("%s: %s", leaf.InstanceLocation, leaf.Message)
	}
	return leaf.Message
}

// leafValidationError walks to the first cause with no further causes.
func leafValidationError(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}
