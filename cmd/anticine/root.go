package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/anticine/anticine/internal/config"
)

var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "anticine",
	Short: "Cinema listings API with seat reservations",
	Long: `anticine - cinema listings API with seat reservations

Mirrors venues, concessions and billboards from the upstream cinema API,
decorates movies with emoji and poster thumbnails, and keeps per-session
seat maps in anticinedb (or redis).

Run 'anticine db serve' before 'anticine serve' when using anticinedb.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: discovered)")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("anticine {{.Version}}\n")
}

// loadConfig loads the --config file, or the discovered one.
func loadConfig() (*config.Config, string, error) {
	path := configPath
	if path == "" {
		found, err := config.Discover()
		if err != nil {
			return nil, "", err
		}
		path = found
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}
