package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	gotoml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"inferd/internal/auth"
)

// Formats accepted by Render and Save
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// Redacted returns a copy of the config with every secret masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Auth.APIKey = auth.MaskToken(c.Auth.APIKey)
	out.Auth.APIKeyHash = auth.MaskToken(c.Auth.APIKeyHash)
	out.Inference.APIKey = auth.MaskToken(c.Inference.APIKey)
	return &out
}

// Render encodes the config in the given format. Secrets are masked.
func Render(cfg *Config, format string) ([]byte, error) {
	return encode(cfg.Redacted(), format)
}

// Save writes the config to path, choosing the format from the extension.
func (c *Config) Save(path string) error {
	format := formatFromPath(path)
	if format == "" {
		return fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
	}
	data, err := encode(c, format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o600)
}

func encode(cfg *Config, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfg); err != nil {
			return nil, err
		}
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	case FormatTOML:
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown format %q (want json, yaml or toml)", format)
	}
	return buf.Bytes(), nil
}

// ValidateFile strictly decodes a config file and validates the result.
// Unlike LoadConfig, keys the config does not define are rejected.
func ValidateFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	switch formatFromPath(path) {
	case FormatTOML:
		dec := gotoml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			var strict *gotoml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, fmt.Errorf("decode %s: unknown keys:\n%s", path, strict.String())
			}
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	}
	return ""
}
