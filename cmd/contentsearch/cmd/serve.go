package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/contentsearch/internal/app"
	"github.com/Aman-CERP/contentsearch/internal/config"
	"github.com/Aman-CERP/contentsearch/internal/logging"
	"github.com/Aman-CERP/contentsearch/internal/mcp"
)

func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server on stdio, exposing the search providers as the
search_content and list_providers tools.

stdout carries JSON-RPC only; logs go to ~/.contentsearch/logs/server.log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Transport (default from config: stdio)")

	return cmd
}

func runServe(ctx context.Context, transport string) error {
	root, err := resolveProject()
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	if transport == "" {
		transport = cfg.Server.Transport
	}

	level := cfg.Server.LogLevel
	if debugMode {
		level = "debug"
	}
	logger, cleanup, err := logging.Setup(logging.ServeConfig(level))
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()
	slog.SetDefault(logger)

	a, err := app.Open(cfg, root, app.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	srv, err := mcp.NewServer(a.Providers, cfg, logger)
	if err != nil {
		return err
	}
	return srv.Serve(ctx, transport)
}
