// Package orchestrator owns the top-level agent: its prompt profile, model
// binding and the closed set of tools and specialists it may call.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"laila/internal/agent"
	"laila/internal/llm"
)

const Name = "orchestrator"

// SessionStore persists turns between invocations.
type SessionStore interface {
	EnsureSession(ctx context.Context, sessionID, channel string) error
	SaveTurn(ctx context.Context, sessionID, userMessage, response, model string) error
	LoadHistory(ctx context.Context, sessionID string) ([]llm.Message, error)
}

type Orchestrator struct {
	agent *agent.Agent
	store SessionStore
	// one invocation at a time
	mu sync.Mutex
}

type Option func(*Orchestrator)

// WithSessionStore enables session history. Without it every Process call
// starts from an empty conversation.
func WithSessionStore(s SessionStore) Option {
	return func(o *Orchestrator) { o.store = s }
}

// New resolves the orchestrator's prompt profile and validates its tools.
// Both failures are startup errors.
func New(factory *agent.Factory, profile, model string, tools []agent.Tool, opts ...Option) (*Orchestrator, error) {
	prompt, err := factory.Profile(profile)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	a, err := factory.Build(Name, prompt, model, tools)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	o := &Orchestrator{agent: a}
	for _, opt := range opts {
		opt(o)
	}
	slog.Info("orchestrator ready", "profile", profile, "model", a.Model(), "tools", len(tools))
	return o, nil
}

func (o *Orchestrator) Model() string { return o.agent.Model() }

// Process runs one request to completion and returns the final text.
// emit may be nil.
func (o *Orchestrator) Process(ctx context.Context, sessionID, prompt string, emit func(agent.Event)) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	log := slog.With("session_id", sessionID)

	var hist []llm.Message
	if o.store != nil {
		h, err := o.store.LoadHistory(ctx, sessionID)
		if err != nil {
			log.Warn("loading history failed, continuing without it", "error", err)
		}
		hist = h
	}

	log.Info("processing request", "history", len(hist))
	res, err := o.agent.Run(ctx, sessionID, hist, prompt, emit)
	if err != nil {
		return "", err
	}
	log.Info("request done",
		"iterations", res.Iterations,
		"input_tokens", res.Usage.InputTokens,
		"output_tokens", res.Usage.OutputTokens,
	)

	if o.store != nil {
		o.save(ctx, log, sessionID, prompt, res.Text)
	}
	return res.Text, nil
}

func (o *Orchestrator) save(ctx context.Context, log *slog.Logger, sessionID, prompt, response string) {
	if err := o.store.EnsureSession(ctx, sessionID, "runtime"); err != nil {
		log.Warn("saving session failed", "error", err)
		return
	}
	if err := o.store.SaveTurn(ctx, sessionID, prompt, response, o.agent.Model()); err != nil {
		log.Warn("saving turn failed", "error", err)
	}
}
