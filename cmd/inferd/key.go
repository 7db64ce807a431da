package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"inferd/internal/auth"
)

func newKeyCmd() *cobra.Command {
	var format string

	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Generate and hash API keys",
		Long: `Create the shared secret clients send as 'Authorization: Bearer <key>'.

Put the key in API_KEY, or keep only its bcrypt hash in auth.apiKeyHash
(INFERD_API_KEY_HASH) so the plaintext never lands in a config file.

Examples:
  inferd key generate
  inferd key hash inferd_sk_0123...`,
	}
	keyCmd.PersistentFlags().StringVar(&format, "format", "human", "Output format (json, human)")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Print a fresh random API key and its bcrypt hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := auth.GenerateKey()
			if err != nil {
				return err
			}
			hash, err := auth.HashKey(key)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]string{"key": key, "hash": hash})
			}
			fmt.Fprintf(out, "API key:  %s\n", key)
			fmt.Fprintf(out, "bcrypt:   %s\n", hash)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Save the key now; it cannot be recovered from the hash.")
			return nil
		},
	}

	hashCmd := &cobra.Command{
		Use:   "hash <key>",
		Short: "Print the bcrypt hash for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashKey(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]string{"key": auth.MaskToken(args[0]), "hash": hash})
			}
			_, err = fmt.Fprintln(out, hash)
			return err
		},
	}

	keyCmd.AddCommand(generateCmd, hashCmd)
	return keyCmd
}
