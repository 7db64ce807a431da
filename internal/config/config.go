package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"inferd/internal/auth"
)

// Engine names accepted by inference.engine
const (
	EngineSimulated = "simulated"
	EngineOpenAI    = "openai"
	EngineAnthropic = "anthropic"
)

// DefaultModelName matches the model the router advertised before any
// configuration was supplied.
const DefaultModelName = "gemini-2.0-flash"

// Config represents the complete inferd configuration
type Config struct {
	Server    ServerConfig    `json:"server" mapstructure:"server" yaml:"server" toml:"server"`
	Model     ModelConfig     `json:"model" mapstructure:"model" yaml:"model" toml:"model"`
	Auth      AuthConfig      `json:"auth" mapstructure:"auth" yaml:"auth" toml:"auth"`
	Inference InferenceConfig `json:"inference" mapstructure:"inference" yaml:"inference" toml:"inference"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging" yaml:"logging" toml:"logging"`
	Journal   JournalConfig   `json:"journal" mapstructure:"journal" yaml:"journal" toml:"journal"`
	Metrics   MetricsConfig   `json:"metrics" mapstructure:"metrics" yaml:"metrics" toml:"metrics"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Host                   string `json:"host" mapstructure:"host" yaml:"host" toml:"host"`
	Port                   int    `json:"port" mapstructure:"port" yaml:"port" toml:"port"`
	EnableReset            bool   `json:"enableReset" mapstructure:"enableReset" yaml:"enableReset" toml:"enableReset"`
	Gzip                   bool   `json:"gzip" mapstructure:"gzip" yaml:"gzip" toml:"gzip"`
	CORSOrigin             string `json:"corsOrigin" mapstructure:"corsOrigin" yaml:"corsOrigin" toml:"corsOrigin"`
	ReadTimeoutSeconds     int    `json:"readTimeoutSeconds" mapstructure:"readTimeoutSeconds" yaml:"readTimeoutSeconds" toml:"readTimeoutSeconds"`
	IdleTimeoutSeconds     int    `json:"idleTimeoutSeconds" mapstructure:"idleTimeoutSeconds" yaml:"idleTimeoutSeconds" toml:"idleTimeoutSeconds"`
	ShutdownTimeoutSeconds int    `json:"shutdownTimeoutSeconds" mapstructure:"shutdownTimeoutSeconds" yaml:"shutdownTimeoutSeconds" toml:"shutdownTimeoutSeconds"`
}

// ModelConfig contains the configured model name
type ModelConfig struct {
	Name string `json:"name" mapstructure:"name" yaml:"name" toml:"name"`
}

// AuthConfig contains the shared bearer secret. Exactly one of APIKey and
// APIKeyHash is normally set; APIKeyHash is a bcrypt hash of the key.
type AuthConfig struct {
	APIKey     string `json:"apiKey" mapstructure:"apiKey" yaml:"apiKey" toml:"apiKey"`
	APIKeyHash string `json:"apiKeyHash" mapstructure:"apiKeyHash" yaml:"apiKeyHash" toml:"apiKeyHash"`
}

// InferenceConfig selects and tunes the inference engine
type InferenceConfig struct {
	Engine             string  `json:"engine" mapstructure:"engine" yaml:"engine" toml:"engine"`
	DelayMs            int     `json:"delayMs" mapstructure:"delayMs" yaml:"delayMs" toml:"delayMs"`
	TimeoutSeconds     int     `json:"timeoutSeconds" mapstructure:"timeoutSeconds" yaml:"timeoutSeconds" toml:"timeoutSeconds"`
	BaseURL            string  `json:"baseUrl" mapstructure:"baseUrl" yaml:"baseUrl" toml:"baseUrl"`
	APIKey             string  `json:"apiKey" mapstructure:"apiKey" yaml:"apiKey" toml:"apiKey"`
	DefaultTemperature float64 `json:"defaultTemperature" mapstructure:"defaultTemperature" yaml:"defaultTemperature" toml:"defaultTemperature"`
	DefaultMaxTokens   int     `json:"defaultMaxTokens" mapstructure:"defaultMaxTokens" yaml:"defaultMaxTokens" toml:"defaultMaxTokens"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" mapstructure:"format" yaml:"format" toml:"format"`
	Level      string `json:"level" mapstructure:"level" yaml:"level" toml:"level"`
	File       string `json:"file" mapstructure:"file" yaml:"file" toml:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize" yaml:"maxSize" toml:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups" yaml:"maxBackups" toml:"maxBackups"`
	MaxAgeDays int    `json:"maxAgeDays" mapstructure:"maxAgeDays" yaml:"maxAgeDays" toml:"maxAgeDays"`
}

// JournalConfig controls the inference journal
type JournalConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled" yaml:"enabled" toml:"enabled"`
	Path    string `json:"path" mapstructure:"path" yaml:"path" toml:"path"`
}

// MetricsConfig controls the /metrics endpoint
type MetricsConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled" yaml:"enabled" toml:"enabled"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                   "0.0.0.0",
			Port:                   5010,
			EnableReset:            true,
			Gzip:                   true,
			CORSOrigin:             "*",
			ReadTimeoutSeconds:     15,
			IdleTimeoutSeconds:     60,
			ShutdownTimeoutSeconds: 10,
		},
		Model: ModelConfig{
			Name: DefaultModelName,
		},
		Inference: InferenceConfig{
			Engine:             EngineSimulated,
			DelayMs:            100,
			TimeoutSeconds:     60,
			DefaultTemperature: 0.7,
			DefaultMaxTokens:   2048,
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "info",
			MaxSize:    "10MB",
			MaxBackups: 3,
			MaxAgeDays: 30,
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    filepath.Join(".inferd", "journal.db"),
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// LoadResult describes where the effective configuration came from
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	UsedDefaults bool
	DotEnvPath   string
	EnvOverrides []EnvOverride
}

// LoadConfig loads configuration from path, or from inferd.{json,yaml,toml}
// in the working directory or ~/.inferd when path is empty.
func LoadConfig(path string) (*Config, error) {
	result, err := LoadConfigWithDetails(path)
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// LoadConfigWithDetails loads configuration and reports its sources.
// Precedence: environment > config file > defaults.
func LoadConfigWithDetails(path string) (*LoadResult, error) {
	result := &LoadResult{}

	// .env never overrides variables already present in the environment
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
		result.DotEnvPath = ".env"
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("inferd")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".inferd"))
		}
	}

	cfg := DefaultConfig()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		result.UsedDefaults = true
	} else {
		result.ConfigPath = v.ConfigFileUsed()
		// Decoding over the defaults keeps every key the file leaves out
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", result.ConfigPath, err)
		}
	}

	result.EnvOverrides = ApplyEnvOverrides(cfg)
	result.Config = cfg
	return result, nil
}

// ResolveModelName returns the model name the environment currently asks
// for, or fallback when none is set.
func ResolveModelName(fallback string) string {
	for _, name := range []string{"INFERD_MODEL_NAME", "MODEL_NAME"} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	if fallback == "" {
		return DefaultModelName
	}
	return fallback
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, &ConfigError{Field: "server.port", Message: fmt.Sprintf("must be between 1 and 65535, got %d", c.Server.Port)})
	}
	if strings.TrimSpace(c.Model.Name) == "" {
		errs = append(errs, &ConfigError{Field: "model.name", Message: "must not be empty"})
	}
	if c.Auth.APIKeyHash != "" && !auth.IsBcryptHash(c.Auth.APIKeyHash) {
		errs = append(errs, &ConfigError{Field: "auth.apiKeyHash", Message: "not a bcrypt hash (generate one with 'inferd key hash')"})
	}
	switch c.Inference.Engine {
	case EngineSimulated, EngineOpenAI, EngineAnthropic:
	default:
		errs = append(errs, &ConfigError{Field: "inference.engine", Message: fmt.Sprintf("unknown engine %q", c.Inference.Engine)})
	}
	if c.Inference.DelayMs < 0 {
		errs = append(errs, &ConfigError{Field: "inference.delayMs", Message: "must not be negative"})
	}
	if c.Inference.TimeoutSeconds <= 0 {
		errs = append(errs, &ConfigError{Field: "inference.timeoutSeconds", Message: "must be positive"})
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)})
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		errs = append(errs, &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)})
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		errs = append(errs, &ConfigError{Field: "journal.path", Message: "required when the journal is enabled"})
	}

	return errors.Join(errs...)
}

// HasCredential reports whether a bearer secret is configured at all.
func (c *Config) HasCredential() bool {
	return c.Auth.APIKey != "" || c.Auth.APIKeyHash != ""
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
