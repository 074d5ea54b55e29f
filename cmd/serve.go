package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bindc-dev/bindc/internal/config"
	"github.com/bindc-dev/bindc/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the live binding diagnostics server",
	Long: `Serve starts an HTTP server that watches documents and view-models,
recompiles on change, and pushes build diagnostics to connected browsers over
WebSocket.

Endpoints:
  /                   Diagnostics dashboard
  /ws                 WebSocket live updates
  /documents          Document build status as JSON
  /api/diagnostics    All current diagnostics as JSON
  /api/build/metrics  Build pipeline metrics

Examples:
  bindc serve                     # Serve on the configured host and port
  bindc serve --port 8080         # Override the port
  bindc serve --strict            # Fail builds on silent classic fallbacks`,
	RunE: runServe,
}

var serveFlags *StandardFlags

func init() {
	rootCmd.AddCommand(serveCmd)
	serveFlags = AddStandardFlags(serveCmd, "server", "build")

	AddFlagValidation(serveCmd, "port", ValidatePort)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := serveFlags.ValidateFlags(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyBuildFlags(cmd, cfg, serveFlags)
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serveFlags.Port
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveFlags.Host
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
		}
		cancel()
	}()

	return srv.Start(ctx)
}
