package agent

import (
	"fmt"

	"laila/internal/llm"
)

// PromptResolver maps a profile name to its system prompt text.
type PromptResolver interface {
	Resolve(name string) (string, error)
}

// Factory builds agents that share a provider and loop settings but differ
// in profile, model and tools.
type Factory struct {
	provider      llm.Provider
	prompts       PromptResolver
	maxIterations int
	maxTokens     int64
	callLimits    map[string]int
}

type FactoryOption func(*Factory)

func WithFactoryMaxIterations(n int) FactoryOption {
	return func(f *Factory) { f.maxIterations = n }
}

func WithFactoryMaxTokens(n int64) FactoryOption {
	return func(f *Factory) { f.maxTokens = n }
}

func WithFactoryCallLimits(limits map[string]int) FactoryOption {
	return func(f *Factory) { f.callLimits = limits }
}

func NewFactory(provider llm.Provider, prompts PromptResolver, opts ...FactoryOption) *Factory {
	f := &Factory{provider: provider, prompts: prompts}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Profile resolves a profile's system prompt.
func (f *Factory) Profile(name string) (string, error) {
	text, err := f.prompts.Resolve(name)
	if err != nil {
		return "", fmt.Errorf("loading profile %q: %w", name, err)
	}
	return text, nil
}

// Build creates an agent over a closed registry of tools. The registry is
// validated first; an invalid one is never handed to the loop.
func (f *Factory) Build(name, systemPrompt, model string, tools []Tool) (*Agent, error) {
	registry := NewRegistry(tools...)
	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("agent %s: %w", name, err)
	}
	return New(f.provider, registry,
		WithName(name),
		WithSystemPrompt(systemPrompt),
		WithModel(model),
		WithMaxIterations(f.maxIterations),
		WithMaxTokens(f.maxTokens),
		WithCallLimits(f.callLimits),
	), nil
}
