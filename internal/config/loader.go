package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/tailscale/hujson"
)

var envTemplateRe = regexp.MustCompile(`\$\{\{\s*\.Env\.(\w+)\s*\}\}`)

// Load reads a JSONC config file, expands ${{ .Env.VAR }} templates, strips
// comments, unmarshals it into Config, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variable templates (before stripping, since templates are in strings)
	expanded := expandEnvTemplates(string(data))

	standard, err := hujson.Standardize([]byte(expanded))
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(standard, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault loads the config from the standard path, or returns a default
// config when the file does not exist.
func LoadDefault() (*Config, error) {
	path := ConfigPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Default returns a config with all defaults applied and no file input.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// expandEnvTemplates replaces ${{ .Env.VAR }} with the env var value.
func expandEnvTemplates(s string) string {
	return envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}

// applyDefaults fills in zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = "127.0.0.1"
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 18720
	}
	if cfg.Events.BufferSize == 0 {
		cfg.Events.BufferSize = 1024
	}

	if cfg.Research.Mode == "" {
		cfg.Research.Mode = "balanced"
	}
	if cfg.Research.MaxIterations == 0 {
		cfg.Research.MaxIterations = 5
	}

	if cfg.WebSearch.Provider == "" {
		cfg.WebSearch.Provider = "searxng"
	}
	if cfg.WebSearch.SearxngURL == "" {
		cfg.WebSearch.SearxngURL = "http://localhost:8888"
	}
	if cfg.WebSearch.Timeout == "" {
		cfg.WebSearch.Timeout = "30s"
	}

	if cfg.Scheduler.File == "" {
		cfg.Scheduler.File = filepath.Join(DelverPath(), "schedules.yaml")
	}

	if cfg.Backend.ContainerName == "" {
		cfg.Backend.ContainerName = "delver-searxng"
	}
	if cfg.Backend.Image == "" {
		cfg.Backend.Image = "searxng/searxng:latest"
	}
	if cfg.Backend.Port == 0 {
		cfg.Backend.Port = 8888
	}

	if cfg.Models.Default == "" {
		cfg.Models.Default = "local"
	}
	if cfg.Models.Providers == nil {
		cfg.Models.Providers = map[string]ProviderConfig{}
	}
	if _, ok := cfg.Models.Providers["local"]; !ok {
		cfg.Models.Providers["local"] = ProviderConfig{
			Driver:      "openai",
			Model:       "lfm2.5",
			BaseURL:     "http://0.0.0.0:7000/v1",
			Auth:        AuthConfig{APIKey: "local-key"},
			MaxTokens:   2048,
			Temperature: 0.1,
			TopP:        0.1,
		}
	}
	// Auth resolution is deferred to models.ResolveAuth() at model init time.
}
