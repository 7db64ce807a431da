package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"inferd/internal/config"
)

func newConfigCmd(configPath *string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect inferd configuration",
		Long:  "View, list and validate the configuration inferd runs with",
	}

	var format string
	var diffOnly bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Display the configuration after file, .env and environment overrides.
Secrets are masked.

Examples:
  inferd config show                 # Pretty-print current config
  inferd config show --format yaml   # Render as YAML (also json, toml)
  inferd config show --diff          # Only show non-default values`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := config.LoadConfigWithDetails(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return showConfig(cmd.OutOrStdout(), result, format, diffOnly)
		},
	}
	showCmd.Flags().StringVar(&format, "format", "human", "Output format (human, json, yaml, toml)")
	showCmd.Flags().BoolVar(&diffOnly, "diff", false, "Only show non-default values (human and json)")

	envCmd := &cobra.Command{
		Use:   "env",
		Short: "List supported environment variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printEnvVars(cmd.OutOrStdout())
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Strictly validate a config file",
		Long: `Decode a config file rejecting unknown keys, then check every value.

Examples:
  inferd config validate inferd.toml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.ValidateFile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", args[0])
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "Write a default config file",
		Long: `Write the default configuration to a file (inferd.toml when omitted).
The format follows the extension: .json, .yaml, .yml or .toml.

Examples:
  inferd config init
  inferd config init ~/.inferd/inferd.yaml
  inferd config init inferd.toml --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "inferd.toml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.DefaultConfig().Save(path); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(showCmd, envCmd, validateCmd, initCmd)
	return configCmd
}

// ConfigShowResponse is the response format for config show --format json
type ConfigShowResponse struct {
	ConfigPath   string                 `json:"configPath,omitempty"`
	DotEnvPath   string                 `json:"dotEnvPath,omitempty"`
	UsedDefaults bool                   `json:"usedDefaults"`
	EnvOverrides []config.EnvOverride   `json:"envOverrides,omitempty"`
	Config       map[string]interface{} `json:"config"`
}

func showConfig(w io.Writer, result *config.LoadResult, format string, diffOnly bool) error {
	switch format {
	case "human", "":
		outputConfigHuman(w, result, diffOnly)
		return nil
	case config.FormatJSON:
		return outputConfigJSON(w, result, diffOnly)
	case config.FormatYAML, config.FormatTOML:
		data, err := config.Render(result.Config, format)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unknown format %q (want human, json, yaml or toml)", format)
	}
}

func toMap(cfg *config.Config) (map[string]interface{}, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func outputConfigJSON(w io.Writer, result *config.LoadResult, diffOnly bool) error {
	configMap, err := toMap(result.Config.Redacted())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if diffOnly {
		defaultMap, err := toMap(config.DefaultConfig())
		if err != nil {
			return fmt.Errorf("marshal defaults: %w", err)
		}
		configMap = computeDiff(configMap, defaultMap)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ConfigShowResponse{
		ConfigPath:   result.ConfigPath,
		DotEnvPath:   result.DotEnvPath,
		UsedDefaults: result.UsedDefaults,
		EnvOverrides: result.EnvOverrides,
		Config:       configMap,
	})
}

// configField is one line of the human listing.
type configField struct {
	name         string
	value, deflt interface{}
}

type configSection struct {
	title  string
	fields []configField
}

func configSections(cfg, defaults *config.Config) []configSection {
	return []configSection{
		{"server", []configField{
			{"host", cfg.Server.Host, defaults.Server.Host},
			{"port", cfg.Server.Port, defaults.Server.Port},
			{"enableReset", cfg.Server.EnableReset, defaults.Server.EnableReset},
			{"gzip", cfg.Server.Gzip, defaults.Server.Gzip},
			{"corsOrigin", cfg.Server.CORSOrigin, defaults.Server.CORSOrigin},
			{"shutdownTimeoutSeconds", cfg.Server.ShutdownTimeoutSeconds, defaults.Server.ShutdownTimeoutSeconds},
		}},
		{"model", []configField{
			{"name", cfg.Model.Name, defaults.Model.Name},
		}},
		{"auth", []configField{
			{"apiKey", valueOrDefault(cfg.Auth.APIKey, "(not set)"), "(not set)"},
			{"apiKeyHash", valueOrDefault(cfg.Auth.APIKeyHash, "(not set)"), "(not set)"},
		}},
		{"inference", []configField{
			{"engine", cfg.Inference.Engine, defaults.Inference.Engine},
			{"delayMs", cfg.Inference.DelayMs, defaults.Inference.DelayMs},
			{"timeoutSeconds", cfg.Inference.TimeoutSeconds, defaults.Inference.TimeoutSeconds},
			{"baseUrl", valueOrDefault(cfg.Inference.BaseURL, "(provider default)"), "(provider default)"},
			{"apiKey", valueOrDefault(cfg.Inference.APIKey, "(not set)"), "(not set)"},
			{"defaultTemperature", cfg.Inference.DefaultTemperature, defaults.Inference.DefaultTemperature},
			{"defaultMaxTokens", cfg.Inference.DefaultMaxTokens, defaults.Inference.DefaultMaxTokens},
		}},
		{"logging", []configField{
			{"level", cfg.Logging.Level, defaults.Logging.Level},
			{"format", cfg.Logging.Format, defaults.Logging.Format},
			{"file", valueOrDefault(cfg.Logging.File, "(stderr only)"), "(stderr only)"},
		}},
		{"journal", []configField{
			{"enabled", cfg.Journal.Enabled, defaults.Journal.Enabled},
			{"path", cfg.Journal.Path, defaults.Journal.Path},
		}},
		{"metrics", []configField{
			{"enabled", cfg.Metrics.Enabled, defaults.Metrics.Enabled},
		}},
	}
}

func outputConfigHuman(w io.Writer, result *config.LoadResult, diffOnly bool) {
	fmt.Fprintln(w, "inferd Configuration")
	fmt.Fprintln(w, strings.Repeat("─", 50))

	if result.UsedDefaults {
		fmt.Fprintln(w, "Source: defaults (no config file found)")
	} else if result.ConfigPath != "" {
		fmt.Fprintf(w, "Source: %s\n", result.ConfigPath)
	}
	if result.DotEnvPath != "" {
		fmt.Fprintf(w, ".env: %s\n", result.DotEnvPath)
	}
	if result.Config.HasCredential() {
		fmt.Fprintln(w, "API key: configured")
	} else {
		fmt.Fprintln(w, "API key: missing (completion requests will be rejected)")
	}

	if len(result.EnvOverrides) > 0 {
		fmt.Fprintln(w, "\nEnvironment Overrides:")
		for _, ov := range result.EnvOverrides {
			fmt.Fprintf(w, "  %s=%s → %s\n", ov.EnvVar, ov.FromValue, ov.Path)
		}
	}
	fmt.Fprintln(w)

	cfg := result.Config.Redacted()
	defaults := config.DefaultConfig()

	if diffOnly {
		fmt.Fprintln(w, "Modified Settings (differs from defaults):")
		n := 0
		for _, sec := range configSections(cfg, defaults) {
			for _, f := range sec.fields {
				if !isEqual(f.value, f.deflt) {
					fmt.Fprintf(w, "  %s.%s: %v (default: %v)\n", sec.title, f.name, f.value, f.deflt)
					n++
				}
			}
		}
		if n == 0 {
			fmt.Fprintln(w, "  (no modifications - using all defaults)")
		}
	} else {
		for _, sec := range configSections(cfg, defaults) {
			fmt.Fprintf(w, "%s:\n", sec.title)
			for _, f := range sec.fields {
				printConfigField(w, "  "+f.name, f.value, f.deflt)
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Use 'inferd config show --format json' for full configuration")
	fmt.Fprintln(w, "Use 'inferd config env' to see supported environment variables")
}

func printConfigField(w io.Writer, name string, value, defaultValue interface{}) {
	modified := ""
	if !isEqual(value, defaultValue) {
		modified = fmt.Sprintf(" (default: %v)", defaultValue)
	}
	fmt.Fprintf(w, "%s: %v%s\n", name, value, modified)
}

func printEnvVars(w io.Writer) {
	fmt.Fprintln(w, "Supported inferd Environment Variables")
	fmt.Fprintln(w, strings.Repeat("─", 50))
	fmt.Fprintln(w)

	for _, v := range config.SupportedEnvVars {
		desc := v.Description
		if v.Secret {
			desc += " [secret]"
		}
		fmt.Fprintf(w, "  %-34s %-24s %s (%s)\n", v.Name, v.Path, desc, v.Type)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "INFERD_ names win over the bare names when both are set.")
	fmt.Fprintln(w, "A .env file in the working directory is loaded first and never overrides")
	fmt.Fprintln(w, "variables already present in the environment.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Example usage:")
	fmt.Fprintln(w, "  API_KEY=secret MODEL_NAME=gemini-2.0-flash inferd serve")
	fmt.Fprintln(w, "  INFERD_LOG_LEVEL=debug INFERD_ENABLE_RESET=false inferd serve")
}

func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func isEqual(a, b interface{}) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func computeDiff(current, defaults map[string]interface{}) map[string]interface{} {
	diff := make(map[string]interface{})
	computeDiffRecursive(current, defaults, diff)
	return diff
}

func computeDiffRecursive(current, defaults map[string]interface{}, diff map[string]interface{}) {
	for key, currentVal := range current {
		defaultVal, exists := defaults[key]
		if !exists {
			diff[key] = currentVal
			continue
		}

		currentMap, currentIsMap := currentVal.(map[string]interface{})
		defaultMap, defaultIsMap := defaultVal.(map[string]interface{})

		if currentIsMap && defaultIsMap {
			nestedDiff := make(map[string]interface{})
			computeDiffRecursive(currentMap, defaultMap, nestedDiff)
			if len(nestedDiff) > 0 {
				diff[key] = nestedDiff
			}
		} else if fmt.Sprintf("%v", currentVal) != fmt.Sprintf("%v", defaultVal) {
			diff[key] = currentVal
		}
	}
}
