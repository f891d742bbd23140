package embedding

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/catalogger/internal/config"
)

// DefaultDimensions is the output width of all-MiniLM-L6-v2.
const DefaultDimensions = 384

// Provider names accepted in embedding.provider.
const (
	ProviderONNX    = "onnx"
	ProviderOllama  = "ollama"
	ProviderOpenAI  = "openai"
	ProviderHashing = "hashing"
)

// New builds the configured embedder wrapped in a query cache. When the ONNX runtime
// cannot be loaded it falls back to the hashing embedder and logs a warning.
func New(cfg *config.EmbeddingConfig, logger *zap.Logger) (*CachedEmbedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		inner Embedder
		err   error
	)
	switch cfg.Provider {
	case ProviderONNX, "":
		inner, err = NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			logger.Warn("onnx embedder unavailable, falling back to hashing embedder",
				zap.String("model_path", cfg.ModelPath), zap.Error(err))
			inner, err = NewHashingEmbedder(cfg.Dimensions), nil
		}
	case ProviderOllama:
		inner = NewOllamaEmbedder(cfg.Dimensions,
			WithOllamaURL(cfg.BaseURL),
			WithOllamaModel(cfg.Model),
			WithOllamaTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second),
		)
	case ProviderOpenAI:
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("embedding provider openai: %s is not set", cfg.APIKeyEnv)
		}
		inner = NewOpenAIEmbedder(key, cfg.BaseURL, cfg.Model, cfg.Dimensions)
	case ProviderHashing:
		inner = NewHashingEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("embedder initialized",
		zap.String("provider", cfg.Provider),
		zap.Int("dimensions", inner.Dimensions()))
	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}
