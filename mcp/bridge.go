package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spetersoncode/loom/tool"
	"golang.org/x/sync/errgroup"
)

// Transports for ServerConfig.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
	TransportHTTP  = "http"
)

// ServerConfig describes how to reach an MCP server.
type ServerConfig struct {
	// Name prefixes the server's tools in the registry.
	Name string `yaml:"name"`

	// Transport is "stdio", "sse" or "http". Empty selects stdio when
	// Command is set and sse otherwise.
	Transport string `yaml:"transport"`

	// Command, Args and Env launch a stdio server.
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`

	// URL is the endpoint of an sse or http server.
	URL string `yaml:"url"`
}

func (c ServerConfig) transport() string {
	if c.Transport != "" {
		return c.Transport
	}
	if c.Command != "" {
		return TransportStdio
	}
	return TransportSSE
}

// Validate checks that the config names a reachable server.
func (c ServerConfig) Validate() error {
	if c.Name == "" {
		return errors.New("mcp: server name is required")
	}
	switch c.transport() {
	case TransportStdio:
		if c.Command == "" {
			return fmt.Errorf("mcp: server %q: command is required for stdio", c.Name)
		}
	case TransportSSE, TransportHTTP:
		if c.URL == "" {
			return fmt.Errorf("mcp: server %q: url is required for %s", c.Name, c.transport())
		}
	default:
		return fmt.Errorf("mcp: server %q: unknown transport %q", c.Name, c.Transport)
	}
	return nil
}

func (c ServerConfig) env() []string {
	env := make([]string, 0, len(c.Env))
	for k, v := range c.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// Server is a connected MCP server.
type Server struct {
	name   string
	client *client.Client
}

// Connect launches or dials the server described by cfg and performs the
// MCP handshake.
func Connect(ctx context.Context, cfg ServerConfig) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var (
		c   *client.Client
		err error
	)
	switch cfg.transport() {
	case TransportStdio:
		c, err = client.NewStdioMCPClient(cfg.Command, cfg.env(), cfg.Args...)
	case TransportSSE:
		c, err = client.NewSSEMCPClient(cfg.URL)
	case TransportHTTP:
		c, err = client.NewStreamableHttpClient(cfg.URL)
	}
	if err != nil {
		return nil, fmt.Errorf("mcp: create client for %q: %w", cfg.Name, err)
	}
	return ConnectClient(ctx, cfg.Name, c)
}

// ConnectClient starts and initializes an existing client. The client is
// closed if the handshake fails.
func ConnectClient(ctx context.Context, name string, c *client.Client) (*Server, error) {
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("mcp: start %q: %w", name, err)
	}

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: "loom", Version: "1.0.0"}
	if _, err := c.Initialize(ctx, req); err != nil {
		c.Close()
		return nil, fmt.Errorf("mcp: initialize %q: %w", name, err)
	}
	return &Server{name: name, client: c}, nil
}

// Name returns the configured server name.
func (s *Server) Name() string {
	return s.name
}

// Close terminates the connection.
func (s *Server) Close() error {
	return s.client.Close()
}

// Tools lists the server's tools under their remote names.
func (s *Server) Tools(ctx context.Context) ([]tool.Tool, error) {
	return s.tools(ctx, false)
}

func (s *Server) tools(ctx context.Context, qualified bool) ([]tool.Tool, error) {
	res, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp: list tools of %q: %w", s.name, err)
	}
	out := make([]tool.Tool, 0, len(res.Tools))
	for _, t := range res.Tools {
		name := t.Name
		if qualified {
			name = QualifiedName(s.name, t.Name)
		}
		out = append(out, &remoteTool{
			client:      s.client,
			name:        name,
			remote:      t.Name,
			description: t.Description,
			schema:      Schema(t),
		})
	}
	return out, nil
}

// ConnectAll connects to every server concurrently. If any connection
// fails, the servers already connected are closed and the first error is
// returned.
func ConnectAll(ctx context.Context, cfgs []ServerConfig) ([]*Server, error) {
	servers := make([]*Server, len(cfgs))
	g, gctx := errgroup.WithContext(ctx)
	for i, cfg := range cfgs {
		g.Go(func() error {
			s, err := Connect(gctx, cfg)
			if err != nil {
				return err
			}
			servers[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		CloseAll(servers)
		return nil, err
	}
	return servers, nil
}

// RegisterAll registers every tool of servers on reg under
// "<server>__<tool>" names and returns how many were registered.
func RegisterAll(ctx context.Context, reg *tool.Registry, servers []*Server) (int, error) {
	n := 0
	for _, s := range servers {
		tools, err := s.tools(ctx, true)
		if err != nil {
			return n, err
		}
		for _, t := range tools {
			if err := reg.Register(t); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// CloseAll closes every non-nil server and joins their errors.
func CloseAll(servers []*Server) error {
	var errs []error
	for _, s := range servers {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("mcp: close %q: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
