package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spetersoncode/loom/tool"
)

// ServerOption configures an exposed server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	name    string
	version string
}

// WithName sets the server name reported to MCP clients.
func WithName(name string) ServerOption {
	return func(c *serverConfig) {
		c.name = name
	}
}

// WithVersion sets the server version reported to MCP clients.
func WithVersion(version string) ServerOption {
	return func(c *serverConfig) {
		c.version = version
	}
}

// Expose creates an MCP server offering every tool in reg.
//
// Arguments are forwarded as received; the MCP client is expected to have
// validated them against the advertised schema.
func Expose(reg *tool.Registry, opts ...ServerOption) *server.MCPServer {
	cfg := &serverConfig{
		name:    "loom",
		version: "1.0.0",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := server.NewMCPServer(cfg.name, cfg.version, server.WithToolCapabilities(true))
	for _, name := range reg.Names() {
		t, ok := reg.Get(name)
		if !ok {
			continue
		}
		s.AddTool(mcp.NewToolWithRawSchema(t.Name(), t.Description(), t.Parameters()), handler(t))
	}
	return s
}

func handler(t tool.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}
		res, err := t.Execute(ctx, "", args, func(tool.Update) {}, tool.Context{})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return ToCallToolResult(res), nil
	}
}

// ServeStdio serves reg over stdin/stdout until the client disconnects.
func ServeStdio(reg *tool.Registry, opts ...ServerOption) error {
	return server.ServeStdio(Expose(reg, opts...))
}
