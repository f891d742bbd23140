package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
embedding:
  provider: hashing
  batch_size: 8
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Embedding.Provider != "hashing" || cfg.Embedding.BatchSize != 8 {
		t.Errorf("unexpected embedding config: %+v", cfg.Embedding)
	}
	if cfg.Embedding.ModelPath != "" {
		t.Errorf("model_path should stay empty for non-onnx providers, got %q", cfg.Embedding.ModelPath)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	cfg, err := Load(writeConfig(t, "debug: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "server: [")); err == nil {
		t.Error("expected parse error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected read error")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: "./data"
watch:
  directories: ["./imports"]
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data"); cfg.Storage.DataDir != want {
		t.Errorf("data_dir = %s, want %s", cfg.Storage.DataDir, want)
	}
	if want := filepath.Join(dir, "data", "corpora.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "data", "keyword"); cfg.Storage.KeywordIndexDir != want {
		t.Errorf("keyword_index_dir = %s, want %s", cfg.Storage.KeywordIndexDir, want)
	}
	if len(cfg.Watch.Directories) != 1 || cfg.Watch.Directories[0] != filepath.Join(dir, "imports") {
		t.Errorf("watch directories = %v", cfg.Watch.Directories)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("default server: %+v", cfg.Server)
	}
	if cfg.Embedding.Dimensions != 384 || cfg.Embedding.BatchSize != 32 {
		t.Errorf("default embedding: %+v", cfg.Embedding)
	}
	if cfg.Search.DefaultTopK != 50 || cfg.Search.DisplayLimit != 20 {
		t.Errorf("default search: %+v", cfg.Search)
	}
	if cfg.Search.KeywordWeight+cfg.Search.SemanticWeight != 1 {
		t.Errorf("default weights should sum to 1: %+v", cfg.Search)
	}
	if cfg.Search.Fuzzy == nil || !*cfg.Search.Fuzzy || cfg.Search.Fuzziness != 1 || cfg.Search.KeywordTitleBoost != 2 {
		t.Errorf("default keyword matching: %+v", cfg.Search)
	}
	if cfg.OpenReview.BaseURL != "https://api2.openreview.net" {
		t.Errorf("openreview base url: %s", cfg.OpenReview.BaseURL)
	}
	if got := cfg.Conferences["NeurIPS 2024"]; got != "NeurIPS.cc/2024/Conference/-/Submission" {
		t.Errorf("conference map: %v", cfg.Conferences)
	}
	if len(cfg.Watch.Extensions) != 3 || cfg.Watch.Extensions[0] != ".csv" {
		t.Errorf("watch extensions: got %v", cfg.Watch.Extensions)
	}
}

func TestApplyDefaults_keepsFuzzyDisabled(t *testing.T) {
	off := false
	cfg := &Config{Search: SearchConfig{Fuzzy: &off}}
	ApplyDefaults(cfg)
	if *cfg.Search.Fuzzy {
		t.Error("an explicit fuzzy: false must survive defaults")
	}
}

func TestApplyDefaults_keepsConfiguredConferences(t *testing.T) {
	cfg := &Config{Conferences: map[string]string{"ICLR 2025": "ICLR.cc/2025/Conference/-/Submission"}}
	ApplyDefaults(cfg)
	if len(cfg.Conferences) != 1 {
		t.Errorf("configured conferences should replace defaults, got %v", cfg.Conferences)
	}
	d := Default()
	d.Conferences["x"] = "y"
	if _, leaked := DefaultConferences["x"]; leaked {
		t.Error("defaults must not be aliased")
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := Default()
	cfg.Server.Port = 9090
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if len(loaded.Conferences) != len(DefaultConferences) {
		t.Errorf("conferences round trip: %v", loaded.Conferences)
	}
}
