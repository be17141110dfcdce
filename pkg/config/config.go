// Package config loads infera runtime settings and manages stored credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/common/model"
	"gopkg.in/yaml.v3"
)

// Defaults applied before the settings file and environment are consulted.
const (
	DefaultModel          = "claude-sonnet-4-5"
	DefaultMaxIterations  = 30
	DefaultMaxTokens      = 8192
	DefaultSessionTimeout = "15m"
)

// Environment variables recognized by Load and ResolveAPIKey.
const (
	EnvAPIKey        = "ANTHROPIC_API_KEY"
	EnvModel         = "INFERA_MODEL"
	EnvMaxIterations = "INFERA_MAX_ITERATIONS"
)

// Settings holds tunables for agent sessions. Loaded from
// .infera/settings.yaml with environment overrides.
type Settings struct {
	Model          string         `yaml:"model"`
	MaxIterations  int            `yaml:"max_iterations"`
	MaxTokens      int            `yaml:"max_tokens"`
	SessionTimeout model.Duration `yaml:"session_timeout"`
	Metrics        bool           `yaml:"metrics"`
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	timeout, _ := model.ParseDuration(DefaultSessionTimeout)
	return Settings{
		Model:          DefaultModel,
		MaxIterations:  DefaultMaxIterations,
		MaxTokens:      DefaultMaxTokens,
		SessionTimeout: timeout,
	}
}

// Load reads settings for a project: defaults, then the settings file if
// present, then environment overrides.
func Load(settingsPath string) (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(settingsPath)
	switch {
	case os.IsNotExist(err):
		// defaults only
	case err != nil:
		return s, fmt.Errorf("failed to read settings file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("failed to parse settings file %s: %w", settingsPath, err)
		}
	}

	if v := os.Getenv(EnvModel); v != "" {
		s.Model = v
	}
	if v := os.Getenv(EnvMaxIterations); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return s, fmt.Errorf("invalid %s value %q", EnvMaxIterations, v)
		}
		s.MaxIterations = n
	}

	if s.MaxIterations <= 0 || s.MaxTokens <= 0 {
		return s, fmt.Errorf("max_iterations and max_tokens must be positive")
	}
	return s, nil
}

// CredentialsPath returns the path of the encrypted credentials file in the
// user's home directory.
func CredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".infera", "credentials"), nil
}

// ResolveAPIKey returns the Anthropic API key. The environment always wins;
// the encrypted credentials store is the fallback.
func ResolveAPIKey(passphrase func() (string, error)) (string, error) {
	if key := os.Getenv(EnvAPIKey); key != "" {
		return key, nil
	}

	path, err := CredentialsPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("no API key: set %s or run 'infera auth login'", EnvAPIKey)
	}

	pass, err := passphrase()
	if err != nil {
		return "", err
	}
	return LoadAPIKey(path, pass)
}
