package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/catalogger/internal/catalog"
	"github.com/hyperjump/catalogger/internal/config"
	"github.com/hyperjump/catalogger/internal/keyword"
	"github.com/hyperjump/catalogger/internal/models"
)

func TestKeywordOptions(t *testing.T) {
	on, off := true, false
	tests := []struct {
		name string
		cfg  config.SearchConfig
		want keyword.SearchOptions
	}{
		{"defaults", config.Default().Search, keyword.SearchOptions{TitleBoost: 2, FuzzyEnabled: true, Fuzziness: 1}},
		{"disabled", config.SearchConfig{Fuzzy: &off, Fuzziness: 2}, keyword.SearchOptions{Fuzziness: 2}},
		{"enabled", config.SearchConfig{Fuzzy: &on, Fuzziness: 2, KeywordTitleBoost: 5}, keyword.SearchOptions{TitleBoost: 5, FuzzyEnabled: true, Fuzziness: 2}},
		{"unset", config.SearchConfig{}, keyword.SearchOptions{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keywordOptions(tt.cfg); *got != tt.want {
				t.Errorf("keywordOptions() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"diffusion models", "-corpus", "NeurIPS 2024"},
			expected: []string{"-corpus", "NeurIPS 2024", "diffusion models"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-top-k", "5", "diffusion models"},
			expected: []string{"-top-k", "5", "diffusion models"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"diffusion models"},
			expected: []string{"diffusion models"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := argsReorder(tt.args); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		args     []string
		expected string
	}{
		{[]string{"robotics"}, "robotics"},
		{[]string{"sim", "to", "real"}, "sim to real"},
		{[]string{"  padded  "}, "padded"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := buildSearchQuery(tt.args); got != tt.expected {
			t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
		}
	}
}

func TestConfigPathFromArgs(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"-config", "/a.yaml", "q"}, "/a.yaml"},
		{[]string{"--config", "/b.yaml"}, "/b.yaml"},
		{[]string{"--config=/c.yaml"}, "/c.yaml"},
		{[]string{"q"}, "default"},
		{[]string{"-config"}, "default"},
	}
	for _, tt := range tests {
		if got := configPathFromArgs(tt.args, "default"); got != tt.want {
			t.Errorf("configPathFromArgs(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestSearchDefaultsFromConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
search:
  default_top_k: 25
  display_limit: 7
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	if k, l := searchDefaultsFromConfig(configPath); k != 25 || l != 7 {
		t.Errorf("searchDefaultsFromConfig() = %d, %d; want 25, 7", k, l)
	}
	def := config.Default().Search
	if k, l := searchDefaultsFromConfig(filepath.Join(dir, "missing.yaml")); k != def.DefaultTopK || l != def.DisplayLimit {
		t.Errorf("missing config: got %d, %d", k, l)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS the cwd may be /private/var/... while t.TempDir() is /var/...
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_missingDefaultUsesBuiltins(t *testing.T) {
	if _, err := os.Stat(defaultConfigPath); err == nil {
		t.Skip("a system config is installed")
	}
	chdir(t, t.TempDir())
	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "" || cfg.Server.Port != 8080 {
		t.Errorf("got %q, %+v", resolved, cfg.Server)
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if _, _, err := loadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("an explicit missing path should be an error")
	}
}

func TestDecodeResponse_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"unknown conference: ICML 1999"}`))
	}))
	defer srv.Close()

	var out models.SearchResponse
	err := postJSON(srv.URL+"/api/v1/search", models.SearchQuery{}, &out)
	if err == nil || !strings.Contains(err.Error(), "404: unknown conference") {
		t.Errorf("err = %v", err)
	}
}

// TestComponents_ImportSearch wires the real components with the hashing embedder and
// runs an import followed by each search mode.
func TestComponents_ImportSearch(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OPENROUTER_API_KEY", "")
	cfg := &config.Config{
		Storage:   config.StorageConfig{DataDir: dir},
		Embedding: config.EmbeddingConfig{Provider: "hashing", Dimensions: 64},
	}
	config.ApplyDefaults(cfg)

	components, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer components.Close()

	csvPath := filepath.Join(dir, "workshop.csv")
	csv := "id,title,abstract,authors,keywords\n" +
		"w1,Robot grasping,sim-to-real transfer for robot grasping,Ann Lee,robotics\n" +
		"w2,Protein folding,diffusion models for protein structure,Bo Chen,biology\n" +
		"w3,Language agents,large language models that use tools,Cy Park,nlp\n"
	if err := os.WriteFile(csvPath, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	idx, err := components.Catalog.Import(ctx, csvPath, nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	components.Catalog.Release(idx)
	if _, err := os.Stat(components.Store.Path("workshop")); err != nil {
		t.Errorf("artifact missing: %v", err)
	}

	for _, mode := range []models.SearchMode{models.ModeSemantic, models.ModeKeyword, models.ModeHybrid} {
		resp, err := components.Catalog.Search(ctx, &models.SearchQuery{Corpus: "workshop", Query: "protein diffusion", Mode: mode})
		if err != nil {
			t.Fatalf("%s search: %v", mode, err)
		}
		if len(resp.Results) == 0 || resp.Results[0].ID != "w2" {
			t.Errorf("%s results = %+v", mode, resp.Results)
		}
	}

	// Fuzzy matching is on by default, so a misspelled keyword query still finds the paper.
	typo, err := components.Catalog.Search(ctx, &models.SearchQuery{Corpus: "workshop", Query: "protin", Mode: models.ModeKeyword})
	if err != nil {
		t.Fatalf("fuzzy search: %v", err)
	}
	if len(typo.Results) == 0 || typo.Results[0].ID != "w2" {
		t.Errorf("fuzzy results = %+v", typo.Results)
	}

	_, err = components.Catalog.Recommend(ctx, &models.RecommendRequest{Corpus: "workshop", Interests: "robots"})
	if !errors.Is(err, catalog.ErrNoReranker) {
		t.Errorf("err = %v, want ErrNoReranker without an API key", err)
	}
}
