package config

import "path/filepath"

// DefaultConferences are the OpenReview venues known out of the box.
var DefaultConferences = map[string]string{
	"NeurIPS 2025": "NeurIPS.cc/2025/Conference/-/Submission",
	"NeurIPS 2024": "NeurIPS.cc/2024/Conference/-/Submission",
	"NeurIPS 2023": "NeurIPS.cc/2023/Conference/-/Submission",
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "/usr/local/var/catalogger/data"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = filepath.Join(cfg.Storage.DataDir, "corpora.db")
	}
	if cfg.Storage.KeywordIndexDir == "" {
		cfg.Storage.KeywordIndexDir = filepath.Join(cfg.Storage.DataDir, "keyword")
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" && cfg.Embedding.Provider == "onnx" {
		cfg.Embedding.ModelPath = "/usr/local/var/catalogger/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 60
	}

	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = 50
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = 500
	}
	if cfg.Search.DisplayLimit == 0 {
		cfg.Search.DisplayLimit = 20
	}
	if cfg.Search.KeywordWeight == 0 && cfg.Search.SemanticWeight == 0 {
		cfg.Search.KeywordWeight = 0.3
		cfg.Search.SemanticWeight = 0.7
	}
	// Fuzzy defaults to true when unset (nil).
	if cfg.Search.Fuzzy == nil {
		t := true
		cfg.Search.Fuzzy = &t
	}
	if cfg.Search.Fuzziness == 0 {
		cfg.Search.Fuzziness = 1
	}
	if cfg.Search.KeywordTitleBoost == 0 {
		cfg.Search.KeywordTitleBoost = 2
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openrouter"
	}
	if cfg.LLM.MaxCandidates == 0 {
		cfg.LLM.MaxCandidates = 50
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 120
	}

	if cfg.OpenReview.BaseURL == "" {
		cfg.OpenReview.BaseURL = "https://api2.openreview.net"
	}
	if cfg.OpenReview.PageSize == 0 {
		cfg.OpenReview.PageSize = 1000
	}
	if cfg.OpenReview.RequestsPerSecond == 0 {
		cfg.OpenReview.RequestsPerSecond = 2
	}

	if cfg.Enrich.PDFTimeoutSeconds == 0 {
		cfg.Enrich.PDFTimeoutSeconds = 10
	}
	if cfg.Enrich.RequestsPerSecond == 0 {
		cfg.Enrich.RequestsPerSecond = 1
	}

	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".csv", ".xlsx", ".jsonl"}
	}
	if len(cfg.Conferences) == 0 {
		cfg.Conferences = make(map[string]string, len(DefaultConferences))
		for name, inv := range DefaultConferences {
			cfg.Conferences[name] = inv
		}
	}
}
