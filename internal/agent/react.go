package agent

import (
	"context"
	"fmt"
	"log/slog"

	"laila/internal/llm"
	"laila/internal/metrics"
	"laila/internal/trace"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const defaultMaxIterations = 20

type Option func(*Agent)

func WithName(name string) Option {
	return func(a *Agent) { a.name = name }
}

func WithSystemPrompt(s string) Option {
	return func(a *Agent) { a.systemPrompt = s }
}

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(a *Agent) { a.model = model }
}

func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

func WithMaxTokens(n int64) Option {
	return func(a *Agent) { a.maxTokens = n }
}

// WithCallLimits caps how many times each named tool may be called in one
// Run. Calls past the limit are not executed; the model gets an error result.
func WithCallLimits(limits map[string]int) Option {
	return func(a *Agent) { a.callLimits = limits }
}

// Agent runs a ReAct (Reason + Act) loop: the model reasons about the
// current state and picks tool calls in one step, tool results are fed back,
// and the loop ends when the model answers without calling tools.
type Agent struct {
	name          string
	provider      llm.Provider
	registry      *Registry
	specs         []llm.ToolSpec
	systemPrompt  string
	model         string
	maxTokens     int64
	maxIterations int
	callLimits    map[string]int
}

func New(provider llm.Provider, registry *Registry, opts ...Option) *Agent {
	if registry == nil {
		registry = NewRegistry()
	}
	a := &Agent{
		name:          "agent",
		provider:      provider,
		registry:      registry,
		maxIterations: defaultMaxIterations,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.model == "" {
		a.model = provider.DefaultModel()
	}
	a.specs = registry.Specs()
	return a
}

func (a *Agent) Name() string  { return a.name }
func (a *Agent) Model() string { return a.model }

// Run processes one user message on top of history. emit may be nil.
func (a *Agent) Run(ctx context.Context, sessionID string, history []llm.Message, message string, emit func(Event)) (*Result, error) {
	if emit == nil {
		emit = func(Event) {}
	}
	ctx = ContextWithSessionID(ctx, sessionID)

	ctx, span := trace.Tracer().Start(ctx, "agent.run",
		oteltrace.WithAttributes(
			attribute.String("gen_ai.agent.name", a.name),
			attribute.String("gen_ai.request.model", a.model),
			attribute.String("session.id", sessionID),
			attribute.String("user.message", clip(message, maxTracedMessage)),
		),
	)
	defer span.End()

	input := make([]llm.Message, 0, len(history)+1)
	input = append(input, history...)
	input = append(input, llm.UserMessage(message))

	res, err := a.loop(ctx, input, emit)
	if err != nil {
		trace.Fail(span, err)
		emit(Event{Type: EventError, Data: err.Error()})
		return nil, err
	}
	res.Messages = res.Messages[len(history):]
	span.SetAttributes(attribute.Int("agent.iterations", res.Iterations))

	emit(Event{Type: EventToken, Data: res.Text})
	emit(Event{Type: EventDone, Data: res.Text})
	return res, nil
}

// loop is the core ReAct cycle. When a tool fails, the error goes back into
// context and the model sees it on the next iteration.
func (a *Agent) loop(ctx context.Context, input []llm.Message, emit func(Event)) (*Result, error) {
	res := &Result{}
	calls := make(map[string]int)

	for iteration := 0; iteration < a.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		llmCtx, llmSpan := trace.Tracer().Start(ctx, "llm.complete",
			oteltrace.WithAttributes(attribute.Int("llm.iteration", iteration)),
		)
		resp, err := a.provider.Complete(llmCtx, llm.Request{
			Model:     a.model,
			System:    a.systemPrompt,
			Messages:  input,
			Tools:     a.specs,
			MaxTokens: a.maxTokens,
		})
		if err != nil {
			trace.Fail(llmSpan, err)
			llmSpan.End()
			metrics.LLMCalls.WithLabelValues(a.name, metrics.OutcomeError).Inc()
			return nil, fmt.Errorf("%s: model call: %w", a.name, err)
		}
		llmSpan.SetAttributes(
			attribute.String("llm.model", resp.Model),
			attribute.Int64("llm.input_tokens", resp.Usage.InputTokens),
			attribute.Int64("llm.output_tokens", resp.Usage.OutputTokens),
		)
		llmSpan.End()
		metrics.LLMCalls.WithLabelValues(a.name, metrics.OutcomeSuccess).Inc()

		res.Iterations++
		res.Usage.InputTokens += resp.Usage.InputTokens
		res.Usage.OutputTokens += resp.Usage.OutputTokens

		input = append(input, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		// No tool calls: the agent considers the task done.
		if len(resp.ToolCalls) == 0 {
			res.Text = resp.Text
			res.Messages = input
			return res, nil
		}

		for _, call := range resp.ToolCalls {
			out, failed := a.act(ctx, call, calls, emit)
			if failed {
				input = append(input, llm.ToolErrorMessage(call.ID, out))
			} else {
				input = append(input, llm.ToolResultMessage(call.ID, out))
			}
		}
	}

	return nil, fmt.Errorf("%s: %w (%d)", a.name, ErrMaxIterations, a.maxIterations)
}

// act executes one tool call and returns its result text. Failures of any
// kind, panics included, come back as "error: ..." text for the model with
// failed set.
func (a *Agent) act(ctx context.Context, call llm.ToolCall, calls map[string]int, emit func(Event)) (out string, failed bool) {
	emit(Event{Type: EventToolCall, Data: map[string]string{
		"name":      call.Name,
		"arguments": call.Arguments,
	}})

	outcome := metrics.OutcomeSuccess
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tool panicked", "agent", a.name, "name", call.Name, "panic", r)
			out = fmt.Sprintf("error: tool %s panicked: %v", call.Name, r)
			failed = true
			outcome = metrics.OutcomeError
		}
		metrics.ToolCalls.WithLabelValues(call.Name, outcome).Inc()
		emit(Event{Type: EventToolResult, Data: map[string]string{
			"name":    call.Name,
			"content": out,
		}})
	}()

	tool, ok := a.registry.Get(call.Name)
	if !ok {
		slog.Warn("unknown tool call", "agent", a.name, "name", call.Name)
		outcome = metrics.OutcomeRejected
		return "error: unknown tool", true
	}

	if limit, ok := a.callLimits[call.Name]; ok && calls[call.Name] >= limit {
		slog.Warn("tool call limit reached", "agent", a.name, "name", call.Name, "limit", limit)
		outcome = metrics.OutcomeRejected
		return fmt.Sprintf("error: %s may be called at most %d time(s) per request", call.Name, limit), true
	}
	calls[call.Name]++

	args := call.Arguments
	if args == "" {
		args = "{}"
	}
	result, err := withTrace(tool).Execute(ctx, args)
	if err != nil {
		slog.Warn("tool execution failed", "agent", a.name, "name", call.Name, "error", err)
		outcome = metrics.OutcomeFailure
		return "error: " + err.Error(), true
	}
	return result, false
}
