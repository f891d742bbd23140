package recommend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hyperjump/catalogger/internal/config"
	"github.com/hyperjump/catalogger/internal/models"
)

// ErrNoAPIKey is returned when the configured provider has no API key in the environment.
var ErrNoAPIKey = errors.New("no API key configured for the LLM provider")

// Provider names accepted in llm.provider.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

type providerDefaults struct {
	baseURL string
	model   string
	keyEnv  string
}

var providers = map[string]providerDefaults{
	ProviderOpenAI:     {"", "gpt-4o-mini", "OPENAI_API_KEY"},
	ProviderOpenRouter: {"https://openrouter.ai/api/v1", "openai/gpt-4o-mini", "OPENROUTER_API_KEY"},
	ProviderGemini:     {"https://generativelanguage.googleapis.com/v1beta/openai/", "gemini-2.5-pro", "GEMINI_API_KEY"},
}

// Reranker picks the most relevant papers among candidates for the stated interests.
type Reranker interface {
	Rerank(ctx context.Context, interests string, candidates []models.ScoredPaper) ([]models.Recommendation, error)
}

// LLMReranker uses an OpenAI-compatible chat completions API.
type LLMReranker struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewLLMReranker builds a re-ranker for cfg.Provider. BaseURL, Model, and APIKeyEnv fall
// back to the provider's defaults.
func NewLLMReranker(cfg *config.LLMConfig, logger *zap.Logger) (*LLMReranker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = ProviderOpenRouter
	}
	def, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider %q (want openai, openrouter, or gemini)", cfg.Provider)
	}
	keyEnv := firstNonEmpty(cfg.APIKeyEnv, def.keyEnv)
	apiKey := strings.TrimSpace(os.Getenv(keyEnv))
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set %s", ErrNoAPIKey, keyEnv)
	}

	oc := openai.DefaultConfig(apiKey)
	if u := firstNonEmpty(cfg.BaseURL, def.baseURL); u != "" {
		oc.BaseURL = u
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &LLMReranker{
		client:  openai.NewClientWithConfig(oc),
		model:   firstNonEmpty(cfg.Model, def.model),
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Model returns the chat model in use.
func (r *LLMReranker) Model() string { return r.model }

// Rerank sends the prompt and parses the answer. No candidates means no recommendations.
func (r *LLMReranker) Rerank(ctx context.Context, interests string, candidates []models.ScoredPaper) ([]models.Recommendation, error) {
	if len(candidates) == 0 {
		return []models.Recommendation{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(interests, candidates)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion (%s): %w", r.model, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
	}
	r.logger.Debug("Re-ranked candidates",
		zap.String("model", r.model),
		zap.Int("candidates", len(candidates)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", time.Since(start)))
	return ParseRecommendations(resp.Choices[0].Message.Content, candidates)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
