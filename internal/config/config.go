package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents the top-level application configuration.
type Config struct {
	Provider  ProviderConfig  `toml:"provider"`
	Host      HostConfig      `toml:"host"`
	Generator GeneratorConfig `toml:"generator"`
	Store     StoreConfig     `toml:"store"`
}

// ProviderConfig holds settings for AI provider selection and configuration.
type ProviderConfig struct {
	Default   string                   `toml:"default"`
	Model     string                   `toml:"model"`
	Anthropic AnthropicProviderConfig  `toml:"anthropic"`
	OpenAI    []OpenAICompatibleConfig `toml:"openai_compatible"`
}

// AnthropicProviderConfig holds Anthropic-specific provider settings.
type AnthropicProviderConfig struct {
	APIKeySource string `toml:"api_key_source"`
	APIKey       string `toml:"api_key"`
}

// OpenAICompatibleConfig holds settings for an OpenAI-compatible provider.
type OpenAICompatibleConfig struct {
	Name         string            `toml:"name"`
	BaseURL      string            `toml:"base_url"`
	APIKeySource string            `toml:"api_key_source"`
	APIKey       string            `toml:"api_key"`
	ExtraHeaders map[string]string `toml:"extra_headers"`
}

// HostConfig holds settings for the source-control host wikis are generated from.
type HostConfig struct {
	// Kind selects the host implementation: "github" or "gitlab".
	Kind        string `toml:"kind"`
	TokenSource string `toml:"token_source"`
	Token       string `toml:"token"`
	// BaseURL overrides the API endpoint for self-hosted installations.
	BaseURL string `toml:"base_url"`
	// RequestsPerSecond throttles outgoing host API calls.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// GeneratorConfig holds settings for the wiki generation pipeline.
type GeneratorConfig struct {
	// Concurrency bounds simultaneous page generation runs process-wide.
	Concurrency int `toml:"concurrency"`
	// FileFetchConcurrency bounds concurrent file downloads within one page.
	FileFetchConcurrency int `toml:"file_fetch_concurrency"`
}

// StoreConfig holds settings for wiki persistence.
type StoreConfig struct {
	// Path is the SQLite database file. Use ":memory:" for an ephemeral store.
	Path string `toml:"path"`
}

// DefaultConfig returns a Config populated with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Default: "anthropic",
			Model:   "claude-sonnet-4-5",
			Anthropic: AnthropicProviderConfig{
				APIKeySource: "env",
			},
		},
		Host: HostConfig{
			Kind:              "github",
			TokenSource:       "env",
			RequestsPerSecond: 5,
		},
		Generator: GeneratorConfig{
			Concurrency:          10,
			FileFetchConcurrency: 5,
		},
		Store: StoreConfig{
			Path: "reposcribe.db",
		},
	}
}

// Load reads a TOML config file and overlays it on the defaults.
// A missing file is not an error; the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
