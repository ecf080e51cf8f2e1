package specialist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"laila/internal/agent"
)

const clientVersion = "1.0.0"

// ErrMissingToken is returned when the MCP toolset has no bearer token.
var ErrMissingToken = errors.New("GitHub personal access token not configured. Set GITHUB_PAT environment variable.")

// Session is the part of an MCP client a toolset needs.
type Session interface {
	Start(ctx context.Context) error
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// Dialer opens an MCP session to url with the given request headers.
type Dialer func(url string, headers map[string]string) (Session, error)

func dialStreamableHTTP(url string, headers map[string]string) (Session, error) {
	c, err := client.NewStreamableHttpClient(url, transport.WithHTTPHeaders(headers))
	if err != nil {
		return nil, err
	}
	return c, nil
}

// MCPToolset exposes the tools of a remote MCP server over streamable HTTP.
// Every Acquire opens a new session that lives until release.
type MCPToolset struct {
	url   string
	token string
	dial  Dialer
}

func NewMCPToolset(url, token string) *MCPToolset {
	return &MCPToolset{url: url, token: token, dial: dialStreamableHTTP}
}

// WithDialer replaces how sessions are opened.
func (m *MCPToolset) WithDialer(d Dialer) *MCPToolset {
	m.dial = d
	return m
}

func (m *MCPToolset) Acquire(ctx context.Context) ([]agent.Tool, func(), error) {
	if m.token == "" {
		return nil, noop, ErrMissingToken
	}

	sess, err := m.dial(m.url, map[string]string{"Authorization": "Bearer " + m.token})
	if err != nil {
		return nil, noop, fmt.Errorf("connecting to MCP server: %w", err)
	}
	release := once(func() {
		if err := sess.Close(); err != nil {
			slog.Warn("mcp: close failed", "url", m.url, "error", err)
		}
	})

	if err := sess.Start(ctx); err != nil {
		return nil, release, fmt.Errorf("starting MCP session: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "laila", Version: clientVersion}
	if _, err := sess.Initialize(ctx, initReq); err != nil {
		return nil, release, fmt.Errorf("initializing MCP session: %w", err)
	}

	listed, err := sess.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, release, fmt.Errorf("listing MCP tools: %w", err)
	}

	tools := make([]agent.Tool, 0, len(listed.Tools))
	for _, t := range listed.Tools {
		tools = append(tools, &mcpTool{sess: sess, tool: t})
	}
	slog.Debug("mcp: tools acquired", "url", m.url, "count", len(tools))
	return tools, release, nil
}

// mcpTool adapts one remote MCP tool to agent.Tool.
type mcpTool struct {
	sess Session
	tool mcp.Tool
}

func (t *mcpTool) Name() string { return t.tool.Name }

func (t *mcpTool) Description() string {
	if t.tool.Description == "" {
		return "MCP tool " + t.tool.Name
	}
	return t.tool.Description
}

func (t *mcpTool) InputSchema() any {
	raw := []byte(t.tool.RawInputSchema)
	if len(raw) == 0 {
		raw, _ = json.Marshal(t.tool.InputSchema)
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil || schema == nil {
		schema = map[string]any{}
	}
	if _, ok := schema["type"]; !ok {
		schema["type"] = "object"
	}
	if _, ok := schema["properties"]; !ok {
		schema["properties"] = map[string]any{}
	}
	return schema
}

func (t *mcpTool) Execute(ctx context.Context, input string) (string, error) {
	var args map[string]any
	if input != "" {
		if err := json.Unmarshal([]byte(input), &args); err != nil {
			return "", fmt.Errorf("parsing %s input: %w", t.tool.Name, err)
		}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = t.tool.Name
	req.Params.Arguments = args

	res, err := t.sess.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("mcp %s: %w", t.tool.Name, err)
	}
	text := contentText(res.Content)
	if res.IsError {
		return "", errors.New(text)
	}
	return text, nil
}

func contentText(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		}
	}
	return strings.Join(parts, "\n")
}
