// Package mcptools connects the agent tier to a GitHub MCP server over
// streamable HTTP and exposes its tools for the model loop.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
)

// ToolInfo describes one remote tool.
type ToolInfo struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Broker lists and invokes remote tools. Satisfied by *Client and by test fakes.
type Broker interface {
	Tools(ctx context.Context) ([]ToolInfo, error)
	Call(ctx context.Context, name string, args json.RawMessage) (string, error)
}

// Client wraps an MCP session against a single server.
type Client struct {
	mc     *client.Client
	logger zerolog.Logger

	tools []ToolInfo // cached after the first Tools call
}

// Connect establishes and initializes a session. The bearer token is sent
// on every request; the GitHub MCP server authenticates with it.
func Connect(ctx context.Context, serverURL, bearerToken string, logger zerolog.Logger) (*Client, error) {
	var opts []transport.StreamableHTTPCOption
	if bearerToken != "" {
		opts = append(opts, transport.WithHTTPHeaders(map[string]string{
			"Authorization": "Bearer " + bearerToken,
		}))
	}

	mc, err := client.NewStreamableHttpClient(serverURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating mcp client: %w", err)
	}
	if err := mc.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting mcp transport: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "repo-intel-agent",
		Version: "1.0.0",
	}
	res, err := mc.Initialize(ctx, initReq)
	if err != nil {
		mc.Close()
		return nil, fmt.Errorf("initializing mcp session: %w", err)
	}

	logger.Info().
		Str("server", res.ServerInfo.Name).
		Str("version", res.ServerInfo.Version).
		Msg("mcp session established")

	return &Client{
		mc:     mc,
		logger: logger.With().Str("component", "mcptools").Logger(),
	}, nil
}

// Tools returns the server's tool listing, caching it for the session.
func (c *Client) Tools(ctx context.Context) ([]ToolInfo, error) {
	if c.tools != nil {
		return c.tools, nil
	}

	res, err := c.mc.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("listing mcp tools: %w", err)
	}

	out := make([]ToolInfo, 0, len(res.Tools))
	for _, t := range res.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			c.logger.Warn().Err(err).Str("tool", t.Name).Msg("skipping tool with bad schema")
			continue
		}
		out = append(out, ToolInfo{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	c.tools = out
	return out, nil
}

// Call invokes a remote tool. Tool-level failures come back as an error so
// the model sees them as a failed tool result rather than a transport fault.
func (c *Client) Call(ctx context.Context, name string, args json.RawMessage) (string, error) {
	var parsed map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &parsed); err != nil {
			return "", fmt.Errorf("tool %s: bad arguments: %w", name, err)
		}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = parsed

	res, err := c.mc.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("calling tool %s: %w", name, err)
	}

	text := flattenContent(res.Content)
	if res.IsError {
		return "", fmt.Errorf("tool %s failed: %s", name, text)
	}
	return text, nil
}

// Close tears down the session.
func (c *Client) Close() error {
	return c.mc.Close()
}

func flattenContent(content []mcp.Content) string {
	var sb strings.Builder
	for _, item := range content {
		if tc, ok := item.(mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}
