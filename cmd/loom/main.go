// Command loom runs the coding-assistant loop from the terminal.
//
// Usage:
//
//	loom run "list the files in this directory"
//	loom serve --addr :8000       # AG-UI over SSE
//	loom mcp                      # expose the file tools over MCP stdio
//	loom models                   # list the model catalog
//
// Configuration comes from an optional YAML file (-c), a .env file and the
// environment. Provider API keys are read from the environment, for example
// ANTHROPIC_API_KEY or OPENAI_API_KEY.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/agent"
	"github.com/spetersoncode/loom/client"
	"github.com/spetersoncode/loom/config"
	"github.com/spetersoncode/loom/internal/logging"
	"github.com/spetersoncode/loom/internal/telemetry"
	"github.com/spetersoncode/loom/mcp"
	"github.com/spetersoncode/loom/metrics"
	"github.com/spetersoncode/loom/tool"
)

// CLI is the command-line interface.
type CLI struct {
	Run    RunCmd    `cmd:"" help:"Run one prompt and print the session events."`
	Serve  ServeCmd  `cmd:"" help:"Serve the agent over AG-UI."`
	MCP    MCPCmd    `cmd:"" name:"mcp" help:"Expose the file tools as an MCP server on stdio."`
	Models ModelsCmd `cmd:"" help:"List the model catalog."`

	Config string `short:"c" help:"Path to config file." type:"path"`
	Dir    string `short:"C" help:"Directory the file tools operate in." default:"." type:"path"`
	Model  string `short:"m" help:"Model as provider/id. Overrides the config file."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("loom"),
		kong.Description("A coding assistant loop over many model providers."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}

// runtime is the wiring shared by commands that run the agent.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	model   ai.Model
	agent   *agent.Agent
	tools   *tool.Registry
	cleanup []func(context.Context) error
}

func (cli *CLI) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, nil, err
	}
	if cli.Model != "" {
		cfg.Model = cli.Model
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func (cli *CLI) setup(ctx context.Context) (*runtime, error) {
	cfg, logger, err := cli.load()
	if err != nil {
		return nil, err
	}
	model, err := cfg.ResolveModel()
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: logger, model: model}

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	rt.cleanup = append(rt.cleanup, shutdownTracing)

	var collector *metrics.Collector
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		if collector, err = metrics.New(reg); err != nil {
			rt.close()
			return nil, err
		}
		rt.cleanup = append(rt.cleanup, collector.Shutdown)
		rt.serveMetrics(reg)
	}

	rt.tools = tool.NewRegistry().Add(tool.FS(tool.WithBasePath(cli.Dir))...)
	if len(cfg.MCPServers) > 0 {
		servers, err := mcp.ConnectAll(ctx, cfg.MCPServers)
		if err != nil {
			rt.close()
			return nil, err
		}
		rt.cleanup = append(rt.cleanup, func(context.Context) error { return mcp.CloseAll(servers) })
		n, err := mcp.RegisterAll(ctx, rt.tools, servers)
		if err != nil {
			rt.close()
			return nil, err
		}
		logger.Info("registered mcp tools", "servers", len(servers), "tools", n)
	}

	c := client.New(client.WithLogger(logger))
	rt.agent = agent.New(c, rt.tools,
		agent.WithConfig(cfg.AgentConfig()),
		agent.WithLogger(logger),
		agent.WithMetrics(collector),
	)
	logger.Debug("runtime ready", "model", model.String(), "tools", rt.tools.Names())
	return rt, nil
}

func (rt *runtime) serveMetrics(reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: rt.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Error("metrics server failed", "error", err)
		}
	}()
	rt.cleanup = append(rt.cleanup, srv.Shutdown)
	rt.logger.Info("serving metrics", "addr", rt.cfg.MetricsAddr)
}

func (rt *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(rt.cleanup) - 1; i >= 0; i-- {
		if err := rt.cleanup[i](ctx); err != nil {
			rt.logger.Warn("shutdown step failed", "error", err)
		}
	}
}
