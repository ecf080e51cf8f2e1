// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"laila/internal/llm"
)

// ErrExhausted is returned once every scripted step has been consumed.
var ErrExhausted = errors.New("llmtest: no more scripted responses")

// Step is one scripted reply. If Err is set it is returned instead of Resp.
type Step struct {
	Resp *llm.Response
	Err  error
}

// Provider replays Steps in order and records every request.
type Provider struct {
	Model string

	mu       sync.Mutex
	steps    []Step
	requests []llm.Request
}

func New(steps ...Step) *Provider {
	return &Provider{Model: "test-model", steps: steps}
}

// Text is a step answering with plain text.
func Text(s string) Step {
	return Step{Resp: &llm.Response{Text: s, StopReason: "end_turn"}}
}

// Call is a step requesting a single tool call.
func Call(id, name, args string) Step {
	return Step{Resp: &llm.Response{
		ToolCalls:  []llm.ToolCall{{ID: id, Name: name, Arguments: args}},
		StopReason: "tool_use",
	}}
}

func Fail(err error) Step {
	return Step{Err: err}
}

func (p *Provider) DefaultModel() string { return p.Model }

func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.steps) == 0 {
		return nil, ErrExhausted
	}
	step := p.steps[0]
	p.steps = p.steps[1:]
	if step.Err != nil {
		return nil, step.Err
	}
	resp := *step.Resp
	if resp.Model == "" {
		resp.Model = req.Model
	}
	return &resp, nil
}

// Requests returns a copy of the requests seen so far.
func (p *Provider) Requests() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.Request(nil), p.requests...)
}
