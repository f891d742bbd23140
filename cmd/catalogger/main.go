// Package main is the Catalogger CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/catalogger/internal/catalog"
	"github.com/hyperjump/catalogger/internal/cli"
	"github.com/hyperjump/catalogger/internal/config"
	"github.com/hyperjump/catalogger/internal/corpus"
	"github.com/hyperjump/catalogger/internal/embedding"
	"github.com/hyperjump/catalogger/internal/enrich"
	"github.com/hyperjump/catalogger/internal/extract"
	"github.com/hyperjump/catalogger/internal/indexer"
	"github.com/hyperjump/catalogger/internal/keyword"
	"github.com/hyperjump/catalogger/internal/models"
	"github.com/hyperjump/catalogger/internal/openreview"
	"github.com/hyperjump/catalogger/internal/recommend"
	"github.com/hyperjump/catalogger/internal/search"
	"github.com/hyperjump/catalogger/internal/server"
	"github.com/hyperjump/catalogger/internal/storage"
	"github.com/hyperjump/catalogger/internal/vector"
	"github.com/hyperjump/catalogger/internal/watcher"
	"github.com/hyperjump/catalogger/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/catalogger/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory wins if present, and a missing default file yields the built-in defaults.
// Returns the config and the path that was loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				if err != nil {
					return nil, "", err
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// API keys may live in a .env file next to the binary's working directory.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "fetch":
		runFetch()
	case "import":
		runImport()
	case "index":
		runIndex()
	case "search":
		runSearch()
	case "recommend":
		runRecommend()
	case "corpora":
		runCorpora()
	case "conferences":
		runConferences()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("catalogger version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// setup loads config, builds the logger, and initializes components for direct commands.
func setup(configPath string, debug bool) (*config.Config, *zap.Logger, *Components) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	return cfg, logger, components
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("config loaded", zap.String("config_path", resolvedConfigPath), zap.Bool("debug", debugMode))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cat := components.Catalog
	watchSvc := watcher.New(
		cfg.Watch.Directories,
		func(path string) {
			idx, err := cat.Import(ctx, path, nil)
			if err != nil {
				logger.Warn("watch import failed", zap.String("path", path), zap.Error(err))
				return
			}
			cat.Release(idx)
		},
		func(path string) {
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			if err := cat.Delete(ctx, name); err != nil {
				logger.Warn("watch delete failed", zap.String("path", path), zap.Error(err))
			}
		},
		watcher.WithExtensions(cfg.Watch.Extensions),
		watcher.WithLogger(logger),
	)
	if err := watchSvc.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	go watchSvc.SyncExistingFiles()

	srv := server.NewServer(cat, components.Storage, cfg, logger, watchSvc, resolvedConfigPath)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	watchSvc.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// signalContext is cancelled on interrupt so long builds stop between batches.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runFetch() {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])
	name := buildSearchQuery(fs.Args())
	if name == "" {
		fatalf("Usage: catalogger fetch [flags] <conference>")
	}
	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	ctx, cancel := signalContext()
	defer cancel()
	idx, err := components.Catalog.Refresh(ctx, name, cli.ProgressPrinter(os.Stderr))
	if err != nil {
		fatalf("Fetch failed: %v", err)
	}
	defer components.Catalog.Release(idx)
	fmt.Printf("Fetched and indexed %d papers for %s\n", idx.Corpus.Len(), idx.Corpus.Name)
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fatalf("Usage: catalogger import [flags] <file>... (%s)", strings.Join(corpus.SupportedExtensions, ", "))
	}
	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	ctx, cancel := signalContext()
	defer cancel()
	failed := false
	for _, path := range fs.Args() {
		idx, err := components.Catalog.Import(ctx, path, cli.ProgressPrinter(os.Stderr))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Import %s failed: %v\n", path, err)
			failed = true
			continue
		}
		fmt.Printf("Imported %d papers as %s\n", idx.Corpus.Len(), idx.Corpus.Name)
		components.Catalog.Release(idx)
	}
	if failed {
		os.Exit(1)
	}
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	batchSize := fs.Int("batch-size", 0, "papers per embedding batch (default from config)")
	_ = fs.Parse(os.Args[2:])
	name := buildSearchQuery(fs.Args())
	if name == "" {
		fatalf("Usage: catalogger index [flags] <corpus>")
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	if *batchSize > 0 {
		cfg.Embedding.BatchSize = *batchSize
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	defer components.Close()

	ctx, cancel := signalContext()
	defer cancel()
	idx, err := components.Catalog.Open(ctx, name, cli.ProgressPrinter(os.Stderr))
	if err != nil {
		fatalf("Index failed: %v", err)
	}
	defer components.Catalog.Release(idx)
	fmt.Printf("%s: %d papers, %d-dimensional embeddings at %s\n",
		idx.Corpus.Name, idx.Matrix.Rows(), idx.Matrix.Cols(), components.Store.Path(idx.Identity))
}

// buildSearchQuery joins all positional args with spaces so multi-word queries work the
// same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// configPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func configPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if v, ok := strings.CutPrefix(a, "-config="); ok {
			return v
		}
	}
	return defaultPath
}

// searchDefaultsFromConfig returns the default top_k and display limit from the config at
// path, or the built-in defaults when it cannot be loaded.
func searchDefaultsFromConfig(path string) (topK, limit int) {
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil {
		cfg = config.Default()
	}
	return cfg.Search.DefaultTopK, cfg.Search.DisplayLimit
}

// keywordOptions maps the search config onto keyword search options.
func keywordOptions(cfg config.SearchConfig) *keyword.SearchOptions {
	return &keyword.SearchOptions{
		TitleBoost:   cfg.KeywordTitleBoost,
		FuzzyEnabled: cfg.Fuzzy != nil && *cfg.Fuzzy,
		Fuzziness:    cfg.Fuzziness,
	}
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse sees them.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: catalogger search [flags] <query>\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  catalogger search --corpus "NeurIPS 2024" diffusion models for video
  catalogger search --corpus "NeurIPS 2024" --mode hybrid --top-k 20 "sim-to-real"
  catalogger search --server "" --corpus my_papers graph networks   # no server running
`)
}

func runSearch() {
	args := argsReorder(os.Args[2:])
	defaultTopK, defaultLimit := searchDefaultsFromConfig(configPathFromArgs(args, defaultConfigPath))

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = search directly without a server)")
	corpusName := fs.String("corpus", "", "corpus or conference to search (required)")
	topK := fs.Int("top-k", defaultTopK, "number of candidates to retrieve")
	limit := fs.Int("limit", defaultLimit, "number of results to print (text and compact output)")
	mode := fs.String("mode", string(models.ModeSemantic), "semantic, keyword, or hybrid")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(args)

	query := buildSearchQuery(fs.Args())
	if query == "" || *corpusName == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	q := &models.SearchQuery{Corpus: *corpusName, Query: query, TopK: *topK, Mode: models.SearchMode(*mode)}

	var response *models.SearchResponse
	if *serverURL != "" {
		response = &models.SearchResponse{}
		err = postJSON(*serverURL+"/api/v1/search", q, response)
	} else {
		_, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		response, err = components.Catalog.Search(context.Background(), q)
	}
	if err != nil {
		fatalf("Search failed: %v", err)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format, *limit); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = run directly without a server)")
	corpusName := fs.String("corpus", "", "corpus or conference (required)")
	interests := fs.String("interests", "", "research interests statement")
	interestsFile := fs.String("interests-file", "", "read interests from a document ("+strings.Join(extract.SupportedExtensions, ", ")+")")
	topK := fs.Int("top-k", 0, "candidates shown to the LLM (default from config)")
	withContacts := fs.Bool("enrich", false, "look up author emails in the paper PDFs")
	more := fs.String("more", "", "comma-separated keywords to add to the interests")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	text := *interests
	if *interestsFile != "" {
		fromFile, err := extract.Interests(*interestsFile)
		if err != nil {
			fatalf("Read interests: %v", err)
		}
		text = strings.TrimSpace(text + " " + fromFile)
	}
	if extra := buildSearchQuery(fs.Args()); extra != "" {
		text = strings.TrimSpace(text + " " + extra)
	}
	var extend []string
	if *more != "" {
		extend = strings.Split(*more, ",")
	}
	if *corpusName == "" || (text == "" && len(extend) == 0) {
		fatalf("Usage: catalogger recommend --corpus <name> [--interests <text> | --interests-file <path>]")
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	req := &models.RecommendRequest{Corpus: *corpusName, Interests: text, TopK: *topK, Enrich: *withContacts, Extend: extend}

	var response *models.RecommendResponse
	if *serverURL != "" {
		response = &models.RecommendResponse{}
		err = postJSON(*serverURL+"/api/v1/recommend", req, response)
	} else {
		_, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		response, err = components.Catalog.Recommend(context.Background(), req)
	}
	if err != nil {
		fatalf("Recommend failed: %v", err)
	}
	if err := cli.WriteRecommendations(os.Stdout, response, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runCorpora() {
	fs := flag.NewFlagSet("corpora", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()
	counts, err := components.Catalog.Provider().Cached(context.Background())
	if err != nil {
		fatalf("List corpora failed: %v", err)
	}
	if err := cli.WriteCorpora(os.Stdout, counts, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runConferences() {
	fs := flag.NewFlagSet("conferences", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	confs := corpus.Conferences(cfg.Conferences)
	for _, name := range confs.Names() {
		fmt.Printf("%-20s %s\n", name, confs[name])
	}
}

// statusResponse is the shape of GET /api/v1/status.
type statusResponse struct {
	Corpora        int64                  `json:"corpora"`
	Papers         int64                  `json:"papers"`
	Loaded         []string               `json:"loaded"`
	DiskUsageBytes *int64                 `json:"disk_usage_bytes,omitempty"`
	Config         map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read storage directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		if err := getJSON(*serverURL+"/api/v1/status", &status); err != nil {
			fatalf("Status failed: %v", err)
		}
	} else {
		cfg, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		ctx := context.Background()
		var err error
		if status.Corpora, err = components.Storage.CountCorpora(ctx); err != nil {
			fatalf("Count corpora failed: %v", err)
		}
		if status.Papers, err = components.Storage.CountPapers(ctx); err != nil {
			fatalf("Count papers failed: %v", err)
		}
		if ids, err := components.Store.Identities(); err == nil {
			status.Loaded = ids
		}
		status.Config = map[string]interface{}{
			"embedding_provider":   cfg.Embedding.Provider,
			"embedding_dimensions": cfg.Embedding.Dimensions,
			"llm_provider":         cfg.LLM.Provider,
			"data_dir":             cfg.Storage.DataDir,
		}
		if n, err := storage.DiskUsageBytes(cfg.Storage.DataDir, cfg.Storage.DatabasePath, cfg.Storage.KeywordIndexDir); err == nil {
			status.DiskUsageBytes = &n
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fatalf("Output failed: %v", err)
		}
	case "text":
		fmt.Printf("corpora:           %d   # cached corpora\n", status.Corpora)
		fmt.Printf("papers:            %d   # papers across cached corpora\n", status.Papers)
		fmt.Printf("indexed:           %s\n", strings.Join(status.Loaded, ", "))
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes:  %d\n", *status.DiskUsageBytes)
		}
		if len(status.Config) > 0 {
			fmt.Println()
			fmt.Println("# configuration")
			for _, k := range []string{"embedding_provider", "embedding_dimensions", "llm_provider", "data_dir"} {
				if v, ok := status.Config[k]; ok {
					fmt.Printf("%-18s %v\n", k+":", v)
				}
			}
		}
	default:
		fatalf("Unknown output format %q; use text or json", *outputFormat)
	}
}

var httpClient = &http.Client{Timeout: 5 * time.Minute}

func postJSON(url string, body, out interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func getJSON(url string, out interface{}) error {
	resp, err := httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds the long-lived objects shared by commands.
type Components struct {
	Storage  *storage.SQLiteStorage
	Embedder *embedding.CachedEmbedder
	Store    *vector.FileStore
	Catalog  *catalog.Catalog
}

func (c *Components) Close() {
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	db, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	embedder, err := embedding.New(&cfg.Embedding, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	store, err := vector.NewFileStore(cfg.Storage.DataDir)
	if err != nil {
		_ = embedder.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	client := openreview.NewClient(
		openreview.WithBaseURL(cfg.OpenReview.BaseURL),
		openreview.WithPageSize(cfg.OpenReview.PageSize),
		openreview.WithRateLimit(cfg.OpenReview.RequestsPerSecond),
		openreview.WithLogger(logger),
	)
	provider := corpus.NewProvider(db, client, corpus.Conferences(cfg.Conferences), corpus.WithLogger(logger))
	pipeline := indexer.NewPipeline(embedder, store,
		indexer.WithLogger(logger),
		indexer.WithDefaultBatchSize(cfg.Embedding.BatchSize))
	engine := search.NewEngine(embedder,
		search.WithWeights(cfg.Search.KeywordWeight, cfg.Search.SemanticWeight),
		search.WithKeywordOptions(keywordOptions(cfg.Search)),
		search.WithLogger(logger))

	opts := []catalog.Option{
		catalog.WithKeywordDir(cfg.Storage.KeywordIndexDir),
		catalog.WithSearchConfig(cfg.Search),
		catalog.WithMaxCandidates(cfg.LLM.MaxCandidates),
		catalog.WithLogger(logger),
	}
	reranker, err := recommend.NewLLMReranker(&cfg.LLM, logger)
	switch {
	case errors.Is(err, recommend.ErrNoAPIKey):
		logger.Debug("recommendations disabled", zap.String("provider", cfg.LLM.Provider), zap.Error(err))
	case err != nil:
		logger.Warn("recommendations disabled", zap.String("provider", cfg.LLM.Provider), zap.Error(err))
	default:
		opts = append(opts, catalog.WithReranker(reranker))
	}
	if cfg.Enrich.Enabled {
		finder := enrich.NewEmailFinder(
			enrich.WithTimeout(time.Duration(cfg.Enrich.PDFTimeoutSeconds)*time.Second),
			enrich.WithRateLimit(cfg.Enrich.RequestsPerSecond),
			enrich.WithProfiles(client),
			enrich.WithLogger(logger),
		)
		opts = append(opts, catalog.WithEnricher(finder))
	}

	return &Components{
		Storage:  db,
		Embedder: embedder,
		Store:    store,
		Catalog:  catalog.New(provider, pipeline, store, engine, opts...),
	}, nil
}

func printUsage() {
	fmt.Println(`catalogger - Semantic search and LLM recommendations for conference papers

Usage:
  catalogger server [flags]                Start the HTTP server
  catalogger fetch [flags] <conference>    Download a conference from OpenReview and index it
  catalogger import [flags] <file>...      Import corpus files (.csv, .xlsx, .jsonl) and index them
  catalogger index [flags] <corpus>        Build or load the embeddings of a cached corpus
  catalogger search [flags] <query>        Search a corpus
  catalogger recommend [flags] [text]      Recommend papers for your interests
  catalogger corpora [flags]               List cached corpora
  catalogger conferences [flags]           List known conferences
  catalogger status [flags]                Show storage and index status
  catalogger version                       Show version
  catalogger help                          Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/catalogger/config.yaml)
  --server string    Server URL for search, recommend and status (default: http://localhost:8080).
                     Use --server "" to work directly on local storage.

Search Flags:
  --corpus string    Corpus or conference name (required)
  --top-k int        Candidates to retrieve (default from config)
  --limit int        Results to print (default from config)
  --mode string      semantic, keyword, or hybrid (default: semantic)
  --output string    text, compact, or json (default: text)

Recommend Flags:
  --corpus string          Corpus or conference name (required)
  --interests string       Interests statement
  --interests-file string  Read interests from .txt, .md, .pdf, .docx, .odt, .rtf or .xlsx
  --top-k int              Candidates shown to the LLM (default from config)
  --enrich                 Look up author emails in the paper PDFs
  --more string            Comma-separated keywords to add to the interests
  --output string          text, compact, or json (default: text)

Examples:
  catalogger fetch "NeurIPS 2024"
  catalogger import ~/papers/workshop.csv
  catalogger search --corpus "NeurIPS 2024" diffusion models for video
  catalogger recommend --corpus "NeurIPS 2024" --interests-file interests.pdf --enrich
  catalogger status --output json`)
}
