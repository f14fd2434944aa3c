// Package config provides configuration loading and structs for the kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Generator GeneratorConfig `yaml:"generator"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the database path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// RetrievalConfig holds index and ranking settings.
type RetrievalConfig struct {
	// TopK is the default number of documents retrieved per query.
	TopK int `yaml:"top_k"`
	// MaxContextChars bounds the assembled context handed to the generator.
	MaxContextChars int `yaml:"max_context_chars"`
	// MinScore drops documents below this similarity on the ask path.
	MinScore float64 `yaml:"min_score"`
	// PreviewChars is the length of content previews in search results.
	PreviewChars int `yaml:"preview_chars"`
}

// GeneratorConfig holds answer generation settings.
type GeneratorConfig struct {
	// Backend selects the generator variant: "stub" or "ollama".
	Backend string `yaml:"backend"`
	// Model is the generation model name (ollama backend).
	Model string `yaml:"model"`
	// BaseURL is the generation API base URL (ollama backend).
	BaseURL string `yaml:"base_url"`
	// TimeoutSeconds bounds each generation call.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// FallbackToStub answers with the offline stub when the backend fails.
	// Off by default so a backend outage surfaces as an error, not as a
	// silently degraded answer.
	FallbackToStub bool `yaml:"fallback_to_stub"`
}

// Timeout returns the generation timeout as a duration.
func (g *GeneratorConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// WatchConfig holds drop-directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path. Used for persisting watch directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
