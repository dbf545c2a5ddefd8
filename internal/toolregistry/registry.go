// Package toolregistry implements the Tool Registry & Tool Contract (C2).
// Tools are registered behind a small interface, validated against a
// JSON-Schema document before execution (santhosh-tekuri/jsonschema), and
// resolve filesystem paths against a single workspace root that they
// cannot escape.
package toolregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

// Tool is one invocable capability an agent can call.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, params json.RawMessage) (*sindri.ToolResult, error)
}

// Registry holds the set of tools available to a running agent.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool, compiling its schema up front so a malformed
// schema fails at startup rather than on first invocation.
func (r *Registry) Register(t Tool) error {
	compiled, err := compileSchema(t.Name(), t.Schema())
	if err != nil {
		return fmt.Errorf("register tool %q: %w", t.Name(), err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
	r.schemas[t.Name()] = compiled
	return nil
}

func compileSchema(name string, raw json.RawMessage) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		raw = json.RawMessage(`{"type":"object"}`)
	}
	compiler := jsonschema.NewCompiler()
	resource := "tool://" + name + ".json"
	if err := compiler.AddResource(resource, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile(resource)
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns every registered tool name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	return out
}

// Specs returns the (name, description, schema) triple for every tool, in
// the shape the Model Client sends to the backend.
func (r *Registry) Specs() []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, ToolSpec{Name: t.Name(), Description: t.Description(), Schema: t.Schema()})
	}
	return out
}

// ToolSpec is the wire-shape description of a tool, mirroring
// modelclient.ToolSpec without importing it; internal/loop's
// filterToolSpecs converts between the two.
type ToolSpec struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// Execute validates params against the tool's compiled schema, then runs
// it. Schema failures are reported as a failed ToolResult, not a Go error,
// so the Loop can append them as a normal tool turn.
func (r *Registry) Execute(ctx context.Context, name string, params json.RawMessage) (*sindri.ToolResult, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return &sindri.ToolResult{Success: false, Error: fmt.Sprintf("%v: %s", sindri.ErrToolNotFound, name)}, nil
	}

	if err := validateParams(schema, params); err != nil {
		return &sindri.ToolResult{
			Success: false,
			Error:   fmt.Sprintf("%v: %v", sindri.ErrToolInvalidArgs, err),
		}, nil
	}

	return t.Execute(ctx, params)
}

func validateParams(schema *jsonschema.Schema, params json.RawMessage) error {
	if schema == nil {
		return nil
	}
	var v any
	if len(params) == 0 {
		v = map[string]any{}
	} else if err := json.Unmarshal(params, &v); err != nil {
		return err
	}
	return schema.Validate(v)
}
