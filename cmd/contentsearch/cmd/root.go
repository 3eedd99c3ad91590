// Package cmd provides the CLI commands for contentsearch.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/contentsearch/internal/app"
	"github.com/Aman-CERP/contentsearch/internal/config"
	cserrors "github.com/Aman-CERP/contentsearch/internal/errors"
	"github.com/Aman-CERP/contentsearch/internal/logging"
	"github.com/Aman-CERP/contentsearch/pkg/version"
)

// Global flags
var (
	projectDir     string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the contentsearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contentsearch",
		Short: "Multilingual search over CMS content",
		Long: `contentsearch indexes CMS pages, blocks and media into one search
index per language and serves editorial search results: titles, edit
links, previews and tooltips, filtered by type, subtree and reader role.

Results are available from the command line and, via 'contentsearch serve',
to MCP clients over stdio.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("contentsearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "Project directory holding .contentsearch.yaml")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.contentsearch/logs/")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newProvidersCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging installs the process logger. Debug mode logs JSON to the
// rotating log file; otherwise warnings go to stderr. The serve command
// replaces this with file-only logging.
func startLogging(cmd *cobra.Command, _ []string) error {
	if debugMode {
		logger, cleanup, err := logging.Setup(logging.DebugConfig())
		if err != nil {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		loggingCleanup = cleanup
		slog.SetDefault(logger)
		slog.Info("debug_logging_enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
		return nil
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn})))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprint(os.Stderr, cserrors.FormatForCLI(err))
	}
	return err
}

// resolveProject returns the absolute project directory.
func resolveProject() (string, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project directory: %w", err)
	}
	return abs, nil
}

// openApp loads the project configuration and opens its stores.
func openApp() (*app.App, error) {
	root, err := resolveProject()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	return app.Open(cfg, root, app.Options{Logger: slog.Default()})
}
