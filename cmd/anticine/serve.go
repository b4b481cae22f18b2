package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anticine/anticine/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	logger := server.NewLogger(cmd.ErrOrStderr(), cfg.Server.LogLevel)
	logger.Info("config loaded", "path", path, "version", version)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = server.NewRunner(cfg, logger, server.WithVersion(version)).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
