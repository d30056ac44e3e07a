package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/agui"
	"github.com/spetersoncode/loom/mcp"
	"github.com/spetersoncode/loom/models"
	"github.com/spetersoncode/loom/tool"
)

// ServeCmd serves the agent over AG-UI.
type ServeCmd struct {
	Addr string `help:"Listen address. Overrides agui_addr." default:""`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := cli.setup(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	addr := c.Addr
	if addr == "" {
		addr = rt.cfg.AGUIAddr
	}
	if addr == "" {
		addr = ":8000"
	}

	mux := http.NewServeMux()
	mux.Handle("/api/agent", corsMiddleware(agui.NewHandler(rt.agent, rt.model, rt.logger)))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	rt.logger.Info("serving AG-UI", "addr", addr, "model", rt.model.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MCPCmd exposes the file tools over MCP stdio.
type MCPCmd struct{}

func (c *MCPCmd) Run(cli *CLI) error {
	tools := tool.NewRegistry().Add(tool.FS(tool.WithBasePath(cli.Dir))...)
	return mcp.ServeStdio(tools, mcp.WithName("loom"), mcp.WithVersion("1.0.0"))
}

// ModelsCmd lists the catalog.
type ModelsCmd struct {
	Provider string `arg:"" optional:"" help:"Only list this provider."`
}

func (c *ModelsCmd) Run() error {
	list := models.All()
	if c.Provider != "" {
		list = models.ByProvider(ai.Provider(c.Provider))
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Provider < list[j].Provider })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tAPI\tCONTEXT\tINPUT $/M\tOUTPUT $/M")
	for _, m := range list {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.2f\n", m.String(), m.Api, m.ContextWindow, m.Cost.Input, m.Cost.Output)
	}
	return w.Flush()
}
