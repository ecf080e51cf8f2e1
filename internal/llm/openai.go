package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// OpenAIProvider uses the Responses API of OpenAI or a compatible endpoint.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	maxTokens int64
}

func NewOpenAI(baseURL, apiKey, model string, maxTokens int64) *OpenAIProvider {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, option.WithHTTPClient(&http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}))
	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client, model: model, maxTokens: maxTokens}
}

func (o *OpenAIProvider) DefaultModel() string { return o.model }

func (o *OpenAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: toOpenAIInput(req.System, req.Messages),
		},
		Tools: toOpenAITools(req.Tools),
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = o.maxTokens
	}
	if maxTokens > 0 {
		params.MaxOutputTokens = openai.Int(maxTokens)
	}

	stream := o.client.Responses.NewStreaming(ctx, params)

	var completed *responses.Response
	for stream.Next() {
		event := stream.Current()
		switch event.Type {
		case "response.completed":
			completed = &event.Response
		case "response.failed":
			return nil, fmt.Errorf("response failed: %s", event.Response.Error.Message)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("openai responses: %w", err)
	}
	if completed == nil {
		return nil, fmt.Errorf("openai responses: stream ended without a completed response")
	}
	return convertOpenAIResponse(completed), nil
}

func toOpenAIInput(system string, messages []Message) []responses.ResponseInputItemUnionParam {
	items := make([]responses.ResponseInputItemUnionParam, 0, len(messages)+1)
	if system != "" {
		items = append(items, responses.ResponseInputItemParamOfMessage(system, "developer"))
	}
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			items = append(items, responses.ResponseInputItemParamOfMessage(m.Content, "user"))
		case RoleAssistant:
			if m.Content != "" {
				items = append(items, responses.ResponseInputItemParamOfMessage(m.Content, "assistant"))
			}
			for _, tc := range m.ToolCalls {
				items = append(items, responses.ResponseInputItemUnionParam{
					OfFunctionCall: &responses.ResponseFunctionToolCallParam{
						CallID:    tc.ID,
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
		case RoleTool:
			items = append(items, responses.ResponseInputItemParamOfFunctionCallOutput(m.ToolCallID, m.Content))
		}
	}
	return items
}

func toOpenAITools(tools []ToolSpec) []responses.ToolUnionParam {
	out := make([]responses.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, responses.ToolUnionParam{
			OfFunction: &responses.FunctionToolParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  t.Schema,
				Strict:      openai.Bool(false),
			},
		})
	}
	return out
}

func convertOpenAIResponse(resp *responses.Response) *Response {
	out := &Response{
		Text:       resp.OutputText(),
		Model:      string(resp.Model),
		StopReason: string(resp.Status),
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}
	for _, item := range resp.Output {
		if item.Type != "function_call" {
			continue
		}
		fc := item.AsFunctionCall()
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        fc.CallID,
			Name:      fc.Name,
			Arguments: fc.Arguments,
		})
	}
	return out
}
