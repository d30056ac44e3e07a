// Package mcp bridges Model Context Protocol servers and loom tools.
//
// Remote MCP servers are consumed as tool.Tool values so the agent loop can
// call them like local tools:
//
//	servers, err := mcp.ConnectAll(ctx, []mcp.ServerConfig{
//	    {Name: "git", Command: "mcp-server-git", Args: []string{"--repository", "."}},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mcp.CloseAll(servers)
//
//	tools := tool.NewRegistry()
//	n, err := mcp.RegisterAll(ctx, tools, servers) // registers "git__status", ...
//
// In the other direction, Expose serves a tool.Registry to MCP clients.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/tool"
)

// NameSeparator joins a server name and a tool name in qualified names.
const NameSeparator = "__"

// QualifiedName returns the registry name of a remote tool.
func QualifiedName(server, name string) string {
	return server + NameSeparator + name
}

// remoteTool proxies calls to a tool on a connected MCP server.
type remoteTool struct {
	client      *client.Client
	name        string // name exposed to the model
	remote      string // name on the server
	description string
	schema      json.RawMessage
}

func (t *remoteTool) Name() string                { return t.name }
func (t *remoteTool) Label() string               { return t.remote }
func (t *remoteTool) Description() string         { return t.description }
func (t *remoteTool) Parameters() json.RawMessage { return t.schema }

// Execute calls the remote tool. A result flagged IsError is returned as an
// error carrying the result text.
func (t *remoteTool) Execute(ctx context.Context, _ string, args map[string]any, _ tool.ProgressFunc, _ tool.Context) (tool.Result, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = t.remote
	req.Params.Arguments = args

	res, err := t.client.CallTool(ctx, req)
	if err != nil {
		return tool.Result{}, err
	}
	out := FromCallToolResult(res)
	if res.IsError {
		msg := textOf(out.Content)
		if msg == "" {
			msg = "remote tool failed"
		}
		return tool.Result{}, errors.New(msg)
	}
	return out, nil
}

// Schema returns the JSON schema of an MCP tool, preferring the raw schema.
func Schema(t mcp.Tool) json.RawMessage {
	if len(t.RawInputSchema) > 0 {
		return t.RawInputSchema
	}
	data, err := json.Marshal(t.InputSchema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return data
}

// FromCallToolResult converts MCP content into a tool result. Text and
// image content map to content blocks; other content is kept as JSON text.
// Structured content is carried in Details.
func FromCallToolResult(res *mcp.CallToolResult) tool.Result {
	var out tool.Result
	if res == nil {
		return out
	}
	for _, c := range res.Content {
		switch content := c.(type) {
		case mcp.TextContent:
			out.Content = append(out.Content, ai.NewTextBlock(content.Text))
		case *mcp.TextContent:
			out.Content = append(out.Content, ai.NewTextBlock(content.Text))
		case mcp.ImageContent:
			out.Content = append(out.Content, ai.NewImageBlock(content.Data, content.MIMEType))
		case *mcp.ImageContent:
			out.Content = append(out.Content, ai.NewImageBlock(content.Data, content.MIMEType))
		default:
			if data, err := json.Marshal(content); err == nil {
				out.Content = append(out.Content, ai.NewTextBlock(string(data)))
			}
		}
	}
	if res.StructuredContent != nil {
		out.Details = res.StructuredContent
	}
	return out
}

// ToCallToolResult converts a tool result into MCP content.
func ToCallToolResult(res tool.Result) *mcp.CallToolResult {
	out := &mcp.CallToolResult{}
	for _, b := range res.Content {
		switch b.Type {
		case ai.ContentImage:
			out.Content = append(out.Content, mcp.NewImageContent(b.Data, b.MimeType))
		case ai.ContentText:
			out.Content = append(out.Content, mcp.NewTextContent(b.Text))
		}
	}
	if res.Details != nil {
		out.StructuredContent = res.Details
	}
	return out
}

func textOf(blocks []ai.ContentBlock) string {
	var parts []string
	for _, b := range blocks {
		if b.Type == ai.ContentText {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
