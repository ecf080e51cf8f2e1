package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"laila/internal/llm"
)

type Tool interface {
	Name() string
	Description() string
	InputSchema() any
	Execute(ctx context.Context, input string) (string, error)
}

// Registry is the closed set of tools an agent may call.
type Registry struct {
	tools map[string]Tool
	order []string
	dups  []string
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds t. Registering a name twice keeps the first tool; Validate
// reports the duplicate.
func (r *Registry) Register(t Tool) {
	name := t.Name()
	if _, ok := r.tools[name]; ok {
		r.dups = append(r.dups, name)
		return
	}
	r.tools[name] = t
	r.order = append(r.order, name)
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// All returns the tools sorted by name.
func (r *Registry) All() []Tool {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	out := make([]Tool, 0, len(names))
	for _, n := range names {
		out = append(out, r.tools[n])
	}
	return out
}

func (r *Registry) Len() int { return len(r.tools) }

// Validate checks the registry is complete: unique names, a description
// and an object input schema for every tool.
func (r *Registry) Validate() error {
	var errs []error
	for _, d := range r.dups {
		errs = append(errs, fmt.Errorf("tool %q registered twice", d))
	}
	for _, t := range r.All() {
		if t.Name() == "" {
			errs = append(errs, errors.New("tool with empty name"))
			continue
		}
		if t.Description() == "" {
			errs = append(errs, fmt.Errorf("tool %q has no description", t.Name()))
		}
		schema, ok := t.InputSchema().(map[string]any)
		if !ok || schema["type"] != "object" {
			errs = append(errs, fmt.Errorf("tool %q has no object input schema", t.Name()))
		}
	}
	return errors.Join(errs...)
}

// Specs describes the registry's tools to a model.
func (r *Registry) Specs() []llm.ToolSpec {
	tools := r.All()
	specs := make([]llm.ToolSpec, 0, len(tools))
	for _, t := range tools {
		schema, _ := t.InputSchema().(map[string]any)
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		specs = append(specs, llm.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Schema:      schema,
		})
	}
	return specs
}
