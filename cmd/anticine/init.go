package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anticine/anticine/internal/config"
)

var (
	initPath  string
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an example config file",
	Long:  "Writes the annotated example config to the XDG config directory, or to --path.",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initPath, "path", "", "Destination (default: $XDG_CONFIG_HOME/anticine/config.toml)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	path := initPath
	if path == "" {
		path = config.DefaultPath()
	}

	if err := config.WriteDefault(path, initForce); err != nil {
		if errors.Is(err, config.ErrExists) {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	fmt.Fprintln(cmd.OutOrStdout(), "Check it with: anticine config test "+path)
	return nil
}
