package main

import (
	"github.com/spf13/cobra"

	"inferd/internal/version"
)

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "inferd",
		Short: "inferd - chat completion front-end",
		Long: `inferd serves an OpenAI-style chat completion API in front of a pluggable
inference engine. It tracks sessions and latency in memory and can journal
every completion to SQLite.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate("inferd version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default: inferd.{json,yaml,toml} in . or ~/.inferd)")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newConfigCmd(&configPath),
		newKeyCmd(),
		newJournalCmd(&configPath),
		newVersionCmd(),
	)
	return rootCmd
}
