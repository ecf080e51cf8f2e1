package llm

import "context"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one conversation item. Assistant messages may carry tool calls;
// tool messages answer exactly one call via ToolCallID.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	// IsError marks a tool message whose call failed.
	IsError bool `json:"is_error,omitempty"`
}

type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON object
}

// ToolSpec describes a callable tool to the model.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]any
}

type Request struct {
	Model     string
	System    string
	Messages  []Message
	Tools     []ToolSpec
	MaxTokens int64
}

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

type Response struct {
	Text       string
	ToolCalls  []ToolCall
	Model      string
	StopReason string
	Usage      Usage
}

type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	// DefaultModel is used when a request leaves Model empty.
	DefaultModel() string
}

func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

func ToolResultMessage(callID, content string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, Content: content}
}

func ToolErrorMessage(callID, content string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, Content: content, IsError: true}
}
