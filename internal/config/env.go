package config

import (
	"os"
	"strconv"
	"strings"

	"inferd/internal/auth"
)

// EnvOverride records one environment variable applied on top of the file config
type EnvOverride struct {
	EnvVar    string `json:"envVar"`
	Path      string `json:"path"`
	FromValue string `json:"fromValue"`
}

// EnvVar describes a supported environment variable
type EnvVar struct {
	Name        string
	Path        string
	Type        string
	Description string
	Secret      bool
	apply       func(cfg *Config, value string) bool
}

// SupportedEnvVars lists every environment override in the order applied.
// The bare names come first so the INFERD_ prefixed forms win when both are set.
var SupportedEnvVars = []EnvVar{
	{Name: "MODEL_NAME", Path: "model.name", Type: "string", Description: "Model name reported by the router",
		apply: func(c *Config, v string) bool { c.Model.Name = v; return true }},
	{Name: "API_KEY", Path: "auth.apiKey", Type: "string", Description: "Bearer secret for /v1/chat/completions", Secret: true,
		apply: func(c *Config, v string) bool { c.Auth.APIKey = v; return true }},
	{Name: "LOG_LEVEL", Path: "logging.level", Type: "string", Description: "Log level (debug, info, warn, error)",
		apply: func(c *Config, v string) bool { c.Logging.Level = strings.ToLower(v); return true }},

	{Name: "INFERD_HOST", Path: "server.host", Type: "string", Description: "Address to bind",
		apply: func(c *Config, v string) bool { c.Server.Host = v; return true }},
	{Name: "INFERD_PORT", Path: "server.port", Type: "int", Description: "Port to listen on",
		apply: func(c *Config, v string) bool { return setInt(&c.Server.Port, v) }},
	{Name: "INFERD_ENABLE_RESET", Path: "server.enableReset", Type: "bool", Description: "Register POST /v1/reset",
		apply: func(c *Config, v string) bool { return setBool(&c.Server.EnableReset, v) }},
	{Name: "INFERD_GZIP", Path: "server.gzip", Type: "bool", Description: "Compress responses",
		apply: func(c *Config, v string) bool { return setBool(&c.Server.Gzip, v) }},
	{Name: "INFERD_MODEL_NAME", Path: "model.name", Type: "string", Description: "Model name reported by the router",
		apply: func(c *Config, v string) bool { c.Model.Name = v; return true }},
	{Name: "INFERD_API_KEY", Path: "auth.apiKey", Type: "string", Description: "Bearer secret for /v1/chat/completions", Secret: true,
		apply: func(c *Config, v string) bool { c.Auth.APIKey = v; return true }},
	{Name: "INFERD_API_KEY_HASH", Path: "auth.apiKeyHash", Type: "string", Description: "bcrypt hash of the bearer secret", Secret: true,
		apply: func(c *Config, v string) bool { c.Auth.APIKeyHash = v; return true }},
	{Name: "INFERD_ENGINE", Path: "inference.engine", Type: "string", Description: "Inference engine (simulated, openai, anthropic)",
		apply: func(c *Config, v string) bool { c.Inference.Engine = strings.ToLower(v); return true }},
	{Name: "INFERD_INFERENCE_DELAY_MS", Path: "inference.delayMs", Type: "int", Description: "Simulated engine delay",
		apply: func(c *Config, v string) bool { return setInt(&c.Inference.DelayMs, v) }},
	{Name: "INFERD_INFERENCE_TIMEOUT_SECONDS", Path: "inference.timeoutSeconds", Type: "int", Description: "Upper bound on one engine call",
		apply: func(c *Config, v string) bool { return setInt(&c.Inference.TimeoutSeconds, v) }},
	{Name: "INFERD_INFERENCE_BASE_URL", Path: "inference.baseUrl", Type: "string", Description: "Base URL for the openai engine",
		apply: func(c *Config, v string) bool { c.Inference.BaseURL = v; return true }},
	{Name: "INFERD_INFERENCE_API_KEY", Path: "inference.apiKey", Type: "string", Description: "Provider key for remote engines", Secret: true,
		apply: func(c *Config, v string) bool { c.Inference.APIKey = v; return true }},
	{Name: "INFERD_LOG_LEVEL", Path: "logging.level", Type: "string", Description: "Log level (debug, info, warn, error)",
		apply: func(c *Config, v string) bool { c.Logging.Level = strings.ToLower(v); return true }},
	{Name: "INFERD_LOG_FORMAT", Path: "logging.format", Type: "string", Description: "Log format (human, json)",
		apply: func(c *Config, v string) bool { c.Logging.Format = strings.ToLower(v); return true }},
	{Name: "INFERD_LOG_FILE", Path: "logging.file", Type: "string", Description: "Also write logs to this rotating file",
		apply: func(c *Config, v string) bool { c.Logging.File = v; return true }},
	{Name: "INFERD_JOURNAL_ENABLED", Path: "journal.enabled", Type: "bool", Description: "Record completions in the SQLite journal",
		apply: func(c *Config, v string) bool { return setBool(&c.Journal.Enabled, v) }},
	{Name: "INFERD_JOURNAL_PATH", Path: "journal.path", Type: "string", Description: "Journal database path",
		apply: func(c *Config, v string) bool { c.Journal.Path = v; return true }},
	{Name: "INFERD_METRICS_ENABLED", Path: "metrics.enabled", Type: "bool", Description: "Serve GET /metrics",
		apply: func(c *Config, v string) bool { return setBool(&c.Metrics.Enabled, v) }},
}

// ApplyEnvOverrides applies every set, parseable environment variable to cfg.
// Values that fail to parse are ignored and the previous value is kept.
func ApplyEnvOverrides(cfg *Config) []EnvOverride {
	var overrides []EnvOverride
	for _, ev := range SupportedEnvVars {
		raw, ok := os.LookupEnv(ev.Name)
		if !ok {
			continue
		}
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		if !ev.apply(cfg, value) {
			continue
		}
		from := value
		if ev.Secret {
			from = auth.MaskToken(value)
		}
		overrides = append(overrides, EnvOverride{EnvVar: ev.Name, Path: ev.Path, FromValue: from})
	}
	return overrides
}

func setInt(dst *int, v string) bool {
	n, err := strconv.Atoi(v)
	if err != nil {
		return false
	}
	*dst = n
	return true
}

func setBool(dst *bool, v string) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	*dst = b
	return true
}
