package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"laila/internal/agent"
	"laila/internal/metrics"
	"laila/internal/trace"
)

// SessionHeader carries the session ID assigned by the hosting runtime.
const SessionHeader = "X-Amzn-Bedrock-AgentCore-Runtime-Session-Id"

const errNoPrompt = "No prompt provided"

// Processor runs one prompt to completion.
type Processor interface {
	Process(ctx context.Context, sessionID, prompt string, emit func(agent.Event)) (string, error)
}

type InvocationRequest struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"session_id,omitempty"`
}

// InvocationResponse holds either Response or Error, always with the
// session ID.
type InvocationResponse struct {
	Response  string `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
	SessionID string `json:"session_id"`
}

// Invoke is the single place where faults from the processor are caught.
// It never panics and always returns an envelope.
func Invoke(ctx context.Context, p Processor, req InvocationRequest, emit func(agent.Event)) (resp InvocationResponse) {
	start := time.Now()
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	resp.SessionID = sessionID
	log := slog.With("session_id", sessionID)

	ctx, span := trace.Tracer().Start(ctx, "invocation",
		oteltrace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	outcome := metrics.OutcomeSuccess
	defer func() {
		if r := recover(); r != nil {
			log.Error("invocation panicked", "panic", r)
			trace.Fail(span, fmt.Errorf("panic: %v", r))
			resp = InvocationResponse{Error: fmt.Sprint(r), SessionID: sessionID}
			outcome = metrics.OutcomeError
		}
		metrics.Invocations.WithLabelValues(outcome).Inc()
		metrics.InvocationDuration.Observe(time.Since(start).Seconds())
	}()

	if strings.TrimSpace(req.Prompt) == "" {
		log.Warn("invocation without prompt")
		outcome = metrics.OutcomeRejected
		resp.Error = errNoPrompt
		return resp
	}

	log.Info("processing invocation")
	text, err := p.Process(ctx, sessionID, req.Prompt, emit)
	if err != nil {
		log.Error("invocation failed", "error", err)
		trace.Fail(span, err)
		outcome = metrics.OutcomeFailure
		resp.Error = err.Error()
		return resp
	}

	log.Info("invocation done", "duration", time.Since(start))
	resp.Response = text
	return resp
}
