package llm

import (
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToAnthropicMessagesGroupsToolResults(t *testing.T) {
	history := []Message{
		UserMessage("create the issue"),
		{Role: RoleAssistant, Content: "checking", ToolCalls: []ToolCall{
			{ID: "c1", Name: "retrieve", Arguments: `{"text":"guide"}`},
			{ID: "c2", Name: "github_agent", Arguments: ""},
		}},
		ToolResultMessage("c1", "guide text"),
		ToolResultMessage("c2", "Status: Success"),
		{Role: RoleAssistant, Content: "done"},
	}

	out := toAnthropicMessages(history)
	require.Len(t, out, 4)

	assert.Equal(t, anthropic.MessageParamRoleUser, out[0].Role)

	assert.Equal(t, anthropic.MessageParamRoleAssistant, out[1].Role)
	require.Len(t, out[1].Content, 3)
	require.NotNil(t, out[1].Content[2].OfToolUse)
	assert.Equal(t, "github_agent", out[1].Content[2].OfToolUse.Name)
	assert.Equal(t, json.RawMessage("{}"), out[1].Content[2].OfToolUse.Input)

	assert.Equal(t, anthropic.MessageParamRoleUser, out[2].Role)
	require.Len(t, out[2].Content, 2)
	require.NotNil(t, out[2].Content[0].OfToolResult)
	assert.Equal(t, "c1", out[2].Content[0].OfToolResult.ToolUseID)
	assert.Equal(t, "c2", out[2].Content[1].OfToolResult.ToolUseID)

	assert.Equal(t, anthropic.MessageParamRoleAssistant, out[3].Role)
}

func TestToAnthropicMessagesMarksToolErrors(t *testing.T) {
	out := toAnthropicMessages([]Message{
		UserMessage("go"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "a"}, {ID: "c2", Name: "b"}}},
		ToolResultMessage("c1", "fine"),
		ToolErrorMessage("c2", "error: backend down"),
	})
	require.Len(t, out, 3)
	require.Len(t, out[2].Content, 2)
	assert.False(t, out[2].Content[0].OfToolResult.IsError.Value)
	assert.True(t, out[2].Content[1].OfToolResult.IsError.Value)
}

func TestToAnthropicToolsKeepsFullSchema(t *testing.T) {
	tools := toAnthropicTools([]ToolSpec{{
		Name:        "create_issue",
		Description: "d",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"labels": map[string]any{"$ref": "#/$defs/labels"},
			},
			"required":             []string{"labels"},
			"additionalProperties": false,
			"$defs": map[string]any{
				"labels": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
		},
	}})
	require.Len(t, tools, 1)

	b, err := json.Marshal(tools[0])
	require.NoError(t, err)
	var got struct {
		InputSchema map[string]any `json:"input_schema"`
	}
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "object", got.InputSchema["type"])
	assert.Equal(t, false, got.InputSchema["additionalProperties"])
	assert.Contains(t, got.InputSchema, "$defs")
	assert.Equal(t, []any{"labels"}, got.InputSchema["required"])

	assert.Nil(t, extraSchemaFields(map[string]any{"type": "object", "properties": map[string]any{}}))
}

func TestRequiredFields(t *testing.T) {
	assert.Equal(t, []string{"a"}, requiredFields(map[string]any{"required": []string{"a"}}))
	assert.Equal(t, []string{"a", "b"}, requiredFields(map[string]any{"required": []any{"a", 3, "b"}}))
	assert.Nil(t, requiredFields(map[string]any{}))
}

func TestRawArguments(t *testing.T) {
	assert.Equal(t, json.RawMessage(`{"x":1}`), rawArguments(`{"x":1}`))
	assert.Equal(t, json.RawMessage("{}"), rawArguments(""))
	assert.Equal(t, json.RawMessage("{}"), rawArguments("{not json"))
}

func TestToOpenAIInput(t *testing.T) {
	items := toOpenAIInput("be brief", []Message{
		UserMessage("hi"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "text_analyzer", Arguments: `{"text":"a b"}`}}},
		ToolResultMessage("c1", `{"word_count":2}`),
		{Role: RoleAssistant, Content: "two words"},
	})

	require.Len(t, items, 5)
	require.NotNil(t, items[2].OfFunctionCall)
	assert.Equal(t, "c1", items[2].OfFunctionCall.CallID)
	assert.Equal(t, "text_analyzer", items[2].OfFunctionCall.Name)
	assert.NotNil(t, items[3].OfFunctionCallOutput)
}

func TestToOpenAITools(t *testing.T) {
	tools := toOpenAITools([]ToolSpec{{Name: "t", Description: "d", Schema: map[string]any{"type": "object"}}})
	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfFunction)
	assert.Equal(t, "t", tools[0].OfFunction.Name)
}
