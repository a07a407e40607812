// Package config loads the user-level YAML configuration: oracle
// endpoint settings, the default tool kind, and the nested context map
// that feeds placeholder resolution.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/planrun/planrun/pkg/placeholder"
)

// OracleConfig selects the planning endpoint.
type OracleConfig struct {
	// Endpoint is a chat-completions URL.
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`

	// APIKeyEnv names the environment variable holding the API key.
	// Credentials never live in the config file itself.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
}

// Config is the user configuration, typically at
// ~/.planrun/config.yaml.
type Config struct {
	Oracle OracleConfig `yaml:"oracle"`

	// Tool is the default tool kind ("execute" unless overridden).
	Tool string `yaml:"tool,omitempty"`

	// Shell overrides the shell used to run commands.
	Shell string `yaml:"shell,omitempty"`

	// Context is the read-only nested string map for {dotted.path}
	// placeholder resolution.
	Context map[string]any `yaml:"context,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Oracle: OracleConfig{
			Endpoint:  "http://localhost:11434/v1/chat/completions",
			Model:     "llama3",
			APIKeyEnv: "PLANRUN_API_KEY",
		},
		Tool: "execute",
	}
}

// DefaultPath returns ~/.planrun/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".planrun", "config.yaml"), nil
}

// Load reads a config file with strict decoding: unknown keys are
// rejected so typos surface instead of being silently ignored.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	return decode(f, path)
}

// LoadDefault loads the config from the default path, falling back to
// Default() when the file does not exist.
func LoadDefault() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader, path string) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	cfg := Default()
	if err := dec.Decode(cfg); err != nil {
		if err == io.EOF {
			return cfg, nil
		}
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Tool == "" {
		cfg.Tool = "execute"
	}
	return cfg, nil
}

// PlaceholderContext exposes the context map as a resolver context.
func (c *Config) PlaceholderContext() placeholder.Context {
	return placeholder.Context(c.Context)
}

// APIKey reads the oracle API key from the configured environment
// variable. Empty when unset.
func (c *Config) APIKey() string {
	if c.Oracle.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Oracle.APIKeyEnv)
}
