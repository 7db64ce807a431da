package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearEnv blanks every supported variable so the host environment
// cannot leak into a test. Blank values are ignored by ApplyEnvOverrides.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, ev := range SupportedEnvVars {
		t.Setenv(ev.Name, "")
	}
}

// isolate runs the test from an empty directory with an empty HOME so
// config discovery finds nothing.
func isolate(t *testing.T) string {
	t.Helper()
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 5010 {
		t.Errorf("Server.Port = %d, want 5010", cfg.Server.Port)
	}
	if !cfg.Server.EnableReset {
		t.Error("reset should be enabled by default")
	}
	if !cfg.Server.Gzip {
		t.Error("gzip should be enabled by default")
	}
	if cfg.Model.Name != DefaultModelName {
		t.Errorf("Model.Name = %q, want %q", cfg.Model.Name, DefaultModelName)
	}
	if cfg.Inference.Engine != EngineSimulated {
		t.Errorf("Inference.Engine = %q, want %q", cfg.Inference.Engine, EngineSimulated)
	}
	if cfg.Inference.DelayMs != 100 {
		t.Errorf("Inference.DelayMs = %d, want 100", cfg.Inference.DelayMs)
	}
	if cfg.Inference.DefaultTemperature != 0.7 {
		t.Errorf("DefaultTemperature = %v, want 0.7", cfg.Inference.DefaultTemperature)
	}
	if cfg.Inference.DefaultMaxTokens != 2048 {
		t.Errorf("DefaultMaxTokens = %d, want 2048", cfg.Inference.DefaultMaxTokens)
	}
	if cfg.Journal.Enabled {
		t.Error("journal should be disabled by default")
	}
	if cfg.HasCredential() {
		t.Error("default config should not carry a credential")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"blank model", func(c *Config) { c.Model.Name = "  " }, "model.name"},
		{"unknown engine", func(c *Config) { c.Inference.Engine = "llama" }, "inference.engine"},
		{"negative delay", func(c *Config) { c.Inference.DelayMs = -1 }, "inference.delayMs"},
		{"zero timeout", func(c *Config) { c.Inference.TimeoutSeconds = 0 }, "inference.timeoutSeconds"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"journal without path", func(c *Config) { c.Journal.Enabled = true; c.Journal.Path = "" }, "journal.path"},
		{"plaintext in hash field", func(c *Config) { c.Auth.APIKeyHash = "not-a-hash" }, "auth.apiKeyHash"},
		{"bcrypt hash", func(c *Config) { c.Auth.APIKeyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error on %s", tt.wantErr)
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() error %T should wrap *ConfigError", err)
			}
			if cfgErr.Field != tt.wantErr {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = -1
	cfg.Inference.Engine = "nope"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "server.port") || !strings.Contains(err.Error(), "inference.engine") {
		t.Errorf("error should mention both fields, got %v", err)
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{
		Field:   "server.port",
		Message: "must be between 1 and 65535, got 0",
	}

	got := err.Error()
	want := "config error in field 'server.port': must be between 1 and 65535, got 0"

	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config, overrides []EnvOverride)
	}{
		{
			name:    "bare names",
			envVars: map[string]string{"MODEL_NAME": "demo-model", "API_KEY": "secret-key-123", "LOG_LEVEL": "DEBUG"},
			validate: func(t *testing.T, cfg *Config, overrides []EnvOverride) {
				if cfg.Model.Name != "demo-model" {
					t.Errorf("Model.Name = %q, want demo-model", cfg.Model.Name)
				}
				if cfg.Auth.APIKey != "secret-key-123" {
					t.Errorf("Auth.APIKey = %q, want secret-key-123", cfg.Auth.APIKey)
				}
				if cfg.Logging.Level != "debug" {
					t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
				}
				if len(overrides) != 3 {
					t.Errorf("len(overrides) = %d, want 3", len(overrides))
				}
			},
		},
		{
			name:    "prefixed name wins",
			envVars: map[string]string{"MODEL_NAME": "plain", "INFERD_MODEL_NAME": "prefixed"},
			validate: func(t *testing.T, cfg *Config, overrides []EnvOverride) {
				if cfg.Model.Name != "prefixed" {
					t.Errorf("Model.Name = %q, want prefixed", cfg.Model.Name)
				}
			},
		},
		{
			name:    "int and bool",
			envVars: map[string]string{"INFERD_PORT": "8080", "INFERD_ENABLE_RESET": "false", "INFERD_INFERENCE_DELAY_MS": "5"},
			validate: func(t *testing.T, cfg *Config, overrides []EnvOverride) {
				if cfg.Server.Port != 8080 {
					t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
				}
				if cfg.Server.EnableReset {
					t.Error("EnableReset should be false")
				}
				if cfg.Inference.DelayMs != 5 {
					t.Errorf("DelayMs = %d, want 5", cfg.Inference.DelayMs)
				}
			},
		},
		{
			name:    "invalid values ignored",
			envVars: map[string]string{"INFERD_PORT": "not-a-number", "INFERD_GZIP": "maybe"},
			validate: func(t *testing.T, cfg *Config, overrides []EnvOverride) {
				if cfg.Server.Port != 5010 {
					t.Errorf("Server.Port = %d, want 5010 (default)", cfg.Server.Port)
				}
				if !cfg.Server.Gzip {
					t.Error("Gzip should keep its default")
				}
				if len(overrides) != 0 {
					t.Errorf("len(overrides) = %d, want 0", len(overrides))
				}
			},
		},
		{
			name:    "secrets masked in overrides",
			envVars: map[string]string{"INFERD_API_KEY": "inferd_sk_0123456789abcdef"},
			validate: func(t *testing.T, cfg *Config, overrides []EnvOverride) {
				if len(overrides) != 1 {
					t.Fatalf("len(overrides) = %d, want 1", len(overrides))
				}
				if strings.Contains(overrides[0].FromValue, "0123456789ab") {
					t.Errorf("FromValue leaks the secret: %q", overrides[0].FromValue)
				}
				if overrides[0].Path != "auth.apiKey" {
					t.Errorf("Path = %q, want auth.apiKey", overrides[0].Path)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := DefaultConfig()
			overrides := ApplyEnvOverrides(cfg)
			tt.validate(t, cfg, overrides)
		})
	}
}

func TestLoadConfigWithDetails_Defaults(t *testing.T) {
	isolate(t)

	result, err := LoadConfigWithDetails("")
	if err != nil {
		t.Fatalf("LoadConfigWithDetails() error = %v", err)
	}
	if !result.UsedDefaults {
		t.Error("UsedDefaults should be true when no config file exists")
	}
	if result.ConfigPath != "" {
		t.Errorf("ConfigPath = %q, want empty string", result.ConfigPath)
	}
	if result.Config.Server.Port != 5010 {
		t.Errorf("Server.Port = %d, want 5010", result.Config.Server.Port)
	}
}

func TestLoadConfigWithDetails_Formats(t *testing.T) {
	files := map[string]string{
		"inferd.json": `{"server": {"port": 6000, "enableReset": false}, "model": {"name": "json-model"}}`,
		"inferd.yaml": "server:\n  port: 6000\n  enableReset: false\nmodel:\n  name: yaml-model\n",
		"inferd.toml": "[server]\nport = 6000\nenableReset = false\n\n[model]\nname = \"toml-model\"\n",
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			dir := isolate(t)
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatalf("Failed to write config: %v", err)
			}

			result, err := LoadConfigWithDetails(path)
			if err != nil {
				t.Fatalf("LoadConfigWithDetails() error = %v", err)
			}
			cfg := result.Config
			if cfg.Server.Port != 6000 {
				t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
			}
			if cfg.Server.EnableReset {
				t.Error("EnableReset should be false per config")
			}
			if !strings.HasSuffix(cfg.Model.Name, "-model") {
				t.Errorf("Model.Name = %q", cfg.Model.Name)
			}
			// keys the file leaves out keep their defaults
			if cfg.Inference.DelayMs != 100 {
				t.Errorf("Inference.DelayMs = %d, want 100", cfg.Inference.DelayMs)
			}
			if result.UsedDefaults {
				t.Error("UsedDefaults should be false")
			}
		})
	}
}

func TestLoadConfigWithDetails_Discovery(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "inferd.yaml"), []byte("server:\n  port: 7000\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	result, err := LoadConfigWithDetails("")
	if err != nil {
		t.Fatalf("LoadConfigWithDetails() error = %v", err)
	}
	if result.Config.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", result.Config.Server.Port)
	}
	if filepath.Base(result.ConfigPath) != "inferd.yaml" {
		t.Errorf("ConfigPath = %q, want inferd.yaml", result.ConfigPath)
	}
}

func TestLoadConfigWithDetails_EnvBeatsFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "inferd.json")
	if err := os.WriteFile(path, []byte(`{"model": {"name": "from-file"}, "logging": {"level": "warn"}}`), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("MODEL_NAME", "from-env")

	result, err := LoadConfigWithDetails(path)
	if err != nil {
		t.Fatalf("LoadConfigWithDetails() error = %v", err)
	}
	if result.Config.Model.Name != "from-env" {
		t.Errorf("Model.Name = %q, want from-env", result.Config.Model.Name)
	}
	if result.Config.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", result.Config.Logging.Level)
	}
	if len(result.EnvOverrides) != 1 {
		t.Errorf("len(EnvOverrides) = %d, want 1", len(result.EnvOverrides))
	}
}

func TestLoadConfigWithDetails_DotEnv(t *testing.T) {
	dir := isolate(t)
	// .env only fills variables that are absent, not blank
	t.Setenv("API_KEY", "")
	os.Unsetenv("API_KEY")

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("API_KEY=dotenv-secret\n"), 0644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}

	result, err := LoadConfigWithDetails("")
	if err != nil {
		t.Fatalf("LoadConfigWithDetails() error = %v", err)
	}
	if result.DotEnvPath != ".env" {
		t.Errorf("DotEnvPath = %q, want .env", result.DotEnvPath)
	}
	if result.Config.Auth.APIKey != "dotenv-secret" {
		t.Errorf("Auth.APIKey = %q, want dotenv-secret", result.Config.Auth.APIKey)
	}
}

func TestLoadConfigWithDetails_InvalidFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "inferd.json")
	if err := os.WriteFile(path, []byte(`{"server": `), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := LoadConfigWithDetails(path); err == nil {
		t.Error("expected error for malformed JSON")
	}
	if _, err := LoadConfig(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for an explicit path that does not exist")
	}
}

func TestResolveModelName(t *testing.T) {
	clearEnv(t)

	if got := ResolveModelName(""); got != DefaultModelName {
		t.Errorf("ResolveModelName(\"\") = %q, want %q", got, DefaultModelName)
	}
	if got := ResolveModelName("configured"); got != "configured" {
		t.Errorf("ResolveModelName(configured) = %q", got)
	}

	t.Setenv("MODEL_NAME", "env-model")
	if got := ResolveModelName("configured"); got != "env-model" {
		t.Errorf("ResolveModelName() = %q, want env-model", got)
	}

	t.Setenv("INFERD_MODEL_NAME", "prefixed-model")
	if got := ResolveModelName("configured"); got != "prefixed-model" {
		t.Errorf("ResolveModelName() = %q, want prefixed-model", got)
	}
}
