package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"inferd/internal/config"
	"inferd/internal/journal"
	"inferd/internal/slogutil"
)

func newJournalCmd(configPath *string) *cobra.Command {
	journalCmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the completion journal",
	}

	var (
		path   string
		limit  int
		format string
	)
	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Print the most recent journal entries",
		Long: `Print recent completions recorded in the SQLite journal, newest first.

Examples:
  inferd journal tail
  inferd journal tail --limit 50 --format json
  inferd journal tail --path /var/lib/inferd/journal.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				cfg, err := config.LoadConfig(*configPath)
				if err != nil {
					return err
				}
				path = cfg.Journal.Path
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("journal %s: %w", path, err)
			}

			j, err := journal.Open(path, slogutil.NewDiscardLogger())
			if err != nil {
				return err
			}
			defer j.Close()

			entries, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			total, err := j.Count(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				if entries == nil {
					entries = []journal.Entry{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			if len(entries) == 0 {
				fmt.Fprintln(out, "No journal entries.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tSESSION\tMODEL\tENGINE\tSTATUS\tLATENCY\tTOKENS")
			for _, e := range entries {
				status := e.Status
				if e.Error != "" {
					status += ": " + e.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%dms\t%d/%d\n",
					e.CreatedAt.Format(time.RFC3339), e.SessionID, e.Model, e.Engine,
					status, e.LatencyMs, e.PromptTokens, e.CompletionTokens)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nShowing %d of %d entries in %s\n", len(entries), total, j.Path())
			return nil
		},
	}
	tailCmd.Flags().StringVar(&path, "path", "", "Journal database (default from config: journal.path)")
	tailCmd.Flags().IntVar(&limit, "limit", 20, "Number of entries to show")
	tailCmd.Flags().StringVar(&format, "format", "human", "Output format (json, human)")

	journalCmd.AddCommand(tailCmd)
	return journalCmd
}
