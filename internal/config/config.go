// Package config provides configuration loading and structs for Catalogger.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Search     SearchConfig     `yaml:"search"`
	LLM        LLMConfig        `yaml:"llm"`
	OpenReview OpenReviewConfig `yaml:"openreview"`
	Enrich     EnrichConfig     `yaml:"enrich"`
	Watch      WatchConfig      `yaml:"watch"`

	// Conferences maps a display name ("NeurIPS 2024") to its OpenReview invitation.
	Conferences map[string]string `yaml:"conferences"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds on-disk locations. Embedding artifacts live directly in DataDir.
type StorageConfig struct {
	DataDir         string `yaml:"data_dir"`
	DatabasePath    string `yaml:"database_path"`
	KeywordIndexDir string `yaml:"keyword_index_dir"`
}

// EmbeddingConfig selects and tunes the embedding model.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`
	ModelPath      string `yaml:"model_path"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	Dimensions     int    `yaml:"dimensions"`
	MaxTokens      int    `yaml:"max_tokens"`
	CacheSize      int    `yaml:"cache_size"`
	BatchSize      int    `yaml:"batch_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SearchConfig holds ranking settings.
type SearchConfig struct {
	DefaultTopK    int     `yaml:"default_top_k"`
	MaxTopK        int     `yaml:"max_top_k"`
	DisplayLimit   int     `yaml:"display_limit"`
	KeywordWeight  float64 `yaml:"keyword_weight"`
	SemanticWeight float64 `yaml:"semantic_weight"`
	// Fuzzy enables typo-tolerant keyword matching within Fuzziness edits (1 or 2).
	Fuzzy             *bool   `yaml:"fuzzy"`
	Fuzziness         int     `yaml:"fuzziness"`
	KeywordTitleBoost float64 `yaml:"keyword_title_boost"`
}

// LLMConfig configures the re-ranker. The API key is read from the APIKeyEnv variable.
type LLMConfig struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	MaxCandidates  int    `yaml:"max_candidates"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// OpenReviewConfig configures the corpus fetcher.
type OpenReviewConfig struct {
	BaseURL           string  `yaml:"base_url"`
	PageSize          int     `yaml:"page_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// EnrichConfig configures author contact enrichment from PDFs.
type EnrichConfig struct {
	Enabled           bool    `yaml:"enabled"`
	PDFTimeoutSeconds int     `yaml:"pdf_timeout_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// WatchConfig lists directories whose corpus files are imported automatically.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
}

// Load reads and parses the config file at path, applies defaults, and expands paths.
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

	// Expand before defaulting so derived paths hang off an absolute data dir.
	cfg.ExpandPaths(filepath.Dir(path))
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ExpandPaths resolves every configured path against configDir (see expandPath).
func (c *Config) ExpandPaths(configDir string) {
	c.Storage.DataDir = expandPath(c.Storage.DataDir, configDir)
	c.Storage.DatabasePath = expandPath(c.Storage.DatabasePath, configDir)
	c.Storage.KeywordIndexDir = expandPath(c.Storage.KeywordIndexDir, configDir)
	c.Embedding.ModelPath = expandPath(c.Embedding.ModelPath, configDir)
	for i := range c.Watch.Directories {
		c.Watch.Directories[i] = expandPath(c.Watch.Directories[i], configDir)
	}
}

// Save writes the config to path.
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
// "~/" and other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	path = strings.TrimPrefix(path, "~/")
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
