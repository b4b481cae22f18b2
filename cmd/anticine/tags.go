package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anticine/anticine/pkg/tags"
)

var tagsJSON bool

var tagsCmd = &cobra.Command{
	Use:   "tags <title>...",
	Short: "Show the tags extracted from version titles",
	Example: `  anticine tags "AVATAR (SUB 3D XD DBOX)"
  anticine tags --json "AVATAR (DOB 2D)" "AVATAR (SUB 3D)"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTags,
}

func init() {
	tagsCmd.Flags().BoolVar(&tagsJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(tagsCmd)
}

type tagsResult struct {
	Title string `json:"title"`
	tags.Set
}

func runTags(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	results := make([]tagsResult, 0, len(args))
	for _, title := range args {
		results = append(results, tagsResult{Title: title, Set: tags.Parse(title)})
	}

	if tagsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, r.Title)
		fmt.Fprintf(out, "  Version:  %s\n", r.Version)
		fmt.Fprintf(out, "  Language: %s\n", r.Language)
		fmt.Fprintf(out, "  Seats:    %s\n", r.Seats)
	}
	if len(results) > 1 {
		version := make([]string, 0, len(results))
		language := make([]string, 0, len(results))
		seats := make([]string, 0, len(results))
		for _, r := range results {
			version = append(version, r.Version)
			language = append(language, r.Language)
			seats = append(seats, r.Seats)
		}
		fmt.Fprintf(out, "\nMerged: %s | %s | %s\n", tags.Merge(version...), tags.Merge(language...), tags.Merge(seats...))
	}
	return nil
}
