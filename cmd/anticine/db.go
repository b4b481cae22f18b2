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

var (
	dbListen string
	dbPath   string
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "anticinedb key/value server",
}

var dbServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the key/value server backing seat maps",
	Args:  cobra.NoArgs,
	RunE:  runDBServe,
}

func init() {
	dbServeCmd.Flags().StringVar(&dbListen, "listen", "", "Listen address (overrides db.listen)")
	dbServeCmd.Flags().StringVar(&dbPath, "path", "", "SQLite file (overrides db.path)")

	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbServeCmd)
}

func runDBServe(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if dbListen != "" {
		cfg.DB.Listen = dbListen
	}
	if dbPath != "" {
		cfg.DB.Path = dbPath
	}

	logger := server.NewLogger(cmd.ErrOrStderr(), cfg.Server.LogLevel).With("component", "anticinedb")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = server.ServeDB(ctx, cfg.DB, logger)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
