package agent

import (
	"errors"

	"laila/internal/llm"
)

type EventType string

const (
	EventToken      EventType = "token"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// ErrMaxIterations is returned when the model keeps requesting tools past
// the configured iteration bound.
var ErrMaxIterations = errors.New("agent exceeded maximum iterations")

// Result is the outcome of one user turn.
type Result struct {
	Text       string
	Messages   []llm.Message // the turn's messages, starting with the user message
	Iterations int
	Usage      llm.Usage
}
