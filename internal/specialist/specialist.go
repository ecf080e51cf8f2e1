// Package specialist runs delegated sub-agents. A specialist is exposed to
// the orchestrator as an ordinary tool, builds a fresh agent for every call
// and reports any failure as status text instead of an error.
package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"laila/internal/agent"
	"laila/internal/metrics"
	"laila/internal/trace"
)

const maxDelegationDepth = 3

type State string

const (
	StateUninitialized State = "uninitialized"
	StateProfileLoaded State = "profile_loaded"
	StateToolsAcquired State = "tools_acquired"
	StateExecuting     State = "executing"
	StateSucceeded     State = "succeeded"
	StateFailed        State = "failed"
	StateReleased      State = "released"
)

// Field is one labelled input of a specialist. Fields are rendered into the
// sub-agent's query in declaration order.
type Field struct {
	Key         string
	Label       string
	Description string
	// Block puts the value on the line after the label.
	Block bool
}

type Definition struct {
	Name        string
	Description string
	// Profile names the prompt profile, resolved on every invocation.
	Profile string
	// Model may be empty to use the provider's default.
	Model       string
	Toolset     Toolset
	Fields      []Field
	FailureNote string
}

type Specialist struct {
	def     Definition
	factory *agent.Factory
	observe func(State)
}

func New(def Definition, factory *agent.Factory) *Specialist {
	return &Specialist{def: def, factory: factory}
}

func (s *Specialist) Name() string        { return s.def.Name }
func (s *Specialist) Description() string { return s.def.Description }

func (s *Specialist) InputSchema() any {
	props := make(map[string]any, len(s.def.Fields))
	required := make([]string, 0, len(s.def.Fields))
	for _, f := range s.def.Fields {
		props[f.Key] = map[string]any{"type": "string", "description": f.Description}
		required = append(required, f.Key)
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Execute never returns an error. Failures come back as
// "Status: Failed" text so the orchestrator can relay them.
func (s *Specialist) Execute(ctx context.Context, input string) (string, error) {
	args := map[string]any{}
	if input != "" {
		if err := json.Unmarshal([]byte(input), &args); err != nil {
			return s.failure(fmt.Errorf("invalid input: %w", err)), nil
		}
	}
	fields := make(map[string]string, len(args))
	for k, v := range args {
		switch v := v.(type) {
		case string:
			fields[k] = v
		case nil:
		default:
			b, _ := json.Marshal(v)
			fields[k] = string(b)
		}
	}
	return s.Run(ctx, fields), nil
}

// Query renders the labelled fields into the sub-agent's input text.
func (s *Specialist) Query(fields map[string]string) string {
	parts := make([]string, 0, len(s.def.Fields))
	for _, f := range s.def.Fields {
		if f.Block {
			parts = append(parts, f.Label+":\n"+fields[f.Key])
		} else {
			parts = append(parts, f.Label+": "+fields[f.Key])
		}
	}
	return strings.Join(parts, "\n\n")
}

// Run performs one delegated invocation: load the profile, acquire the
// toolset, run a fresh agent for a single turn and release the toolset.
func (s *Specialist) Run(ctx context.Context, fields map[string]string) (out string) {
	id := uuid.NewString()
	log := slog.With("specialist", s.def.Name, "delegation_id", id)

	ctx, span := trace.Tracer().Start(ctx, "specialist."+s.def.Name,
		oteltrace.WithAttributes(
			attribute.String("gen_ai.agent.name", s.def.Name),
			attribute.String("delegation.id", id),
			attribute.String("prompt.profile", s.def.Profile),
		),
	)
	defer span.End()

	state := StateUninitialized
	to := func(next State) {
		log.Debug("specialist state", "from", state, "to", next)
		span.AddEvent(string(next))
		state = next
		if s.observe != nil {
			s.observe(next)
		}
	}
	fail := func(err error) string {
		log.Error("specialist failed", "state", state, "error", err)
		trace.Fail(span, err)
		to(StateFailed)
		metrics.SpecialistRuns.WithLabelValues(s.def.Name, metrics.OutcomeFailure).Inc()
		return s.failure(err)
	}

	defer func() {
		if r := recover(); r != nil {
			out = fail(fmt.Errorf("panic: %v", r))
		}
		to(StateReleased)
	}()

	depth := agent.DelegationDepthFromContext(ctx)
	if depth >= maxDelegationDepth {
		return fail(fmt.Errorf("maximum delegation depth (%d) exceeded", maxDelegationDepth))
	}

	prompt, err := s.factory.Profile(s.def.Profile)
	if err != nil {
		return fail(err)
	}
	to(StateProfileLoaded)

	tools, release, err := s.def.Toolset.Acquire(ctx)
	if release != nil {
		defer release()
	}
	if err != nil {
		return fail(err)
	}
	to(StateToolsAcquired)

	sub, err := s.factory.Build(s.def.Name, prompt, s.def.Model, tools)
	if err != nil {
		return fail(err)
	}

	to(StateExecuting)
	parent := agent.SessionIDFromContext(ctx)
	subSession := fmt.Sprintf("%s:delegate:%s", parent, s.def.Name)
	subCtx := agent.ContextWithDelegationDepth(ctx, depth+1)

	res, err := sub.Run(subCtx, subSession, nil, s.Query(fields), nil)
	if err != nil {
		return fail(err)
	}

	to(StateSucceeded)
	metrics.SpecialistRuns.WithLabelValues(s.def.Name, metrics.OutcomeSuccess).Inc()
	log.Info("specialist done", "iterations", res.Iterations, "tools", len(tools))
	return withStatus(res.Text)
}

func (s *Specialist) failure(err error) string {
	return fmt.Sprintf("Status: Failed\n\nError: %s\n\nDetails: %s", err.Error(), s.def.FailureNote)
}

func withStatus(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "Status:") {
		return trimmed
	}
	if trimmed == "" {
		return "Status: Success"
	}
	return "Status: Success\n\n" + trimmed
}
