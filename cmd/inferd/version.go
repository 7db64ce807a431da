package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"inferd/internal/version"
)

func newVersionCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]string{
					"version":    version.Version,
					"apiVersion": version.APIVersion,
					"commit":     version.Commit,
					"buildDate":  version.BuildDate,
				})
			}
			_, err := fmt.Fprintln(out, version.Full())
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "human", "Output format (human, json)")
	return cmd
}
