package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/anticine/anticine/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configTestCmd = &cobra.Command{
	Use:   "test [path]",
	Short: "Validate configuration file",
	Long:  "Validates config.toml syntax, required fields, and environment variable substitution without starting the server.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigTest,
}

var configDefaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Print the example configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprint(cmd.OutOrStdout(), config.DefaultConfig())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configTestCmd, configDefaultCmd)
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	path := configPath
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		found, err := config.Discover()
		if err != nil {
			return err
		}
		path = found
	}

	fmt.Fprintf(out, "Validating %s...\n\n", path)

	cfg, err := config.LoadWithoutValidation(path)
	if err != nil {
		var configErr *config.ConfigError
		if errors.As(err, &configErr) {
			printConfigErrors(out, configErr)
			return errors.New("configuration invalid")
		}
		return fmt.Errorf("failed to load config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		printConfigErrors(out, &config.ConfigError{Path: path, Errors: errs})
		return errors.New("configuration invalid")
	}

	printConfigSummary(out, cfg)
	fmt.Fprintln(out, "\nConfiguration valid!")
	return nil
}

func printConfigErrors(w io.Writer, e *config.ConfigError) {
	if len(e.Missing) > 0 {
		fmt.Fprintln(w, "Missing environment variables:")
		for _, m := range e.Missing {
			fmt.Fprintf(w, "  - %s\n", m)
		}
		fmt.Fprintln(w)
	}

	if len(e.Errors) > 0 {
		fmt.Fprintln(w, "Validation errors:")
		for _, err := range e.Errors {
			fmt.Fprintf(w, "  - %s\n", err)
		}
		fmt.Fprintln(w)
	}
}

func refreshEvery(d time.Duration) string {
	if d == 0 {
		return "once"
	}
	return "every " + d.String()
}

func printConfigSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Configuration Summary:")
	fmt.Fprintf(w, "  Server:        %s:%d (log: %s)\n", cfg.Server.Host, cfg.Server.Port, cfg.Server.LogLevel)
	fmt.Fprintf(w, "  Upstream:      %s (brand: %s)\n", cfg.Upstream.BaseURL, cfg.Upstream.Brand)

	r := cfg.Refresh
	fmt.Fprintf(w, "  Refresh:       venues %s, concessions %s, boards %s\n",
		refreshEvery(r.Venues), refreshEvery(r.Concessions), refreshEvery(r.Boards))
	if r.Blackout.Enabled {
		fmt.Fprintf(w, "  Blackout:      %02d:00-%02d:00 (UTC%+d)\n", r.Blackout.StartHour, r.Blackout.EndHour, r.Blackout.UTCOffset)
	}

	if e := cfg.Enrichment; e.Enabled {
		fmt.Fprintf(w, "  Enrichment:    %s", e.AI.Provider)
		if e.AI.Provider == "ollama" {
			fmt.Fprintf(w, " (%s at %s)", e.AI.Model, e.AI.URL)
		}
		if e.Thumbnail.Enabled {
			fmt.Fprintf(w, ", thumbnails %dx%d", e.Thumbnail.Width, e.Thumbnail.Height)
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "  Enrichment:    disabled")
	}

	store := cfg.SessionStore.Driver
	if cfg.SessionStore.Addr != "" && store != "memory" {
		store += " at " + cfg.SessionStore.Addr
	}
	fmt.Fprintf(w, "  Session store: %s\n", store)
	fmt.Fprintf(w, "  Geo:           %s (fallback: %s)\n", cfg.Geo.Provider, cfg.Geo.City)
}
