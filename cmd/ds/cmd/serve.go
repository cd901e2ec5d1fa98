package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ds/internal/mcp"
)

func newServeCmd(a *app) *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an MCP server exposing file search",
		Long: `Run a Model Context Protocol server on stdin/stdout.

Tools:
  file_search    find files by path pattern and free text query
  generate_sql   show the Windows Search SQL for a pattern and query

Resources:
  ds://config    effective configuration
  ds://history   searches made through this server

Nothing but JSON-RPC is written to stdout; logs go to ~/.ds/logs/ds.log.`,
		Example: `  # Register with an MCP client
  ds serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(commandContext(cmd), a, transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Transport (stdio); default from config")

	return cmd
}

func runServe(ctx context.Context, a *app, transport string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := a.config()
	if transport == "" {
		transport = cfg.Server.Transport
	}

	engine, metrics, closeEngine, err := newEngine(cfg, true, serveFlushInterval)
	if err != nil {
		return err
	}
	defer closeEngine()

	server, err := mcp.NewServer(engine, cfg)
	if err != nil {
		return err
	}

	// ds://history shows this process's searches; they are persisted on exit.
	if metrics != nil {
		server.SetMetrics(metrics)
	}

	slog.Info("serve_starting",
		slog.String("transport", transport),
		slog.String("generator", engine.Generator()))
	return server.Serve(ctx, transport)
}
