package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultOllamaURL is the default Ollama API endpoint.
	DefaultOllamaURL = "http://localhost:11434"
	// DefaultOllamaModel is all-MiniLM-L6-v2 as packaged by Ollama.
	DefaultOllamaModel = "all-minilm:l6-v2"

	ollamaEmbedPath = "/api/embed"
)

// OllamaEmbedder calls the batch embedding endpoint of an Ollama server.
type OllamaEmbedder struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

// OllamaOption configures an OllamaEmbedder.
type OllamaOption func(*OllamaEmbedder)

// WithOllamaURL sets the Ollama API base URL.
func WithOllamaURL(url string) OllamaOption {
	return func(e *OllamaEmbedder) {
		if url != "" {
			e.baseURL = url
		}
	}
}

// WithOllamaModel sets the embedding model.
func WithOllamaModel(model string) OllamaOption {
	return func(e *OllamaEmbedder) {
		if model != "" {
			e.model = model
		}
	}
}

// WithOllamaTimeout sets the HTTP client timeout.
func WithOllamaTimeout(d time.Duration) OllamaOption {
	return func(e *OllamaEmbedder) { e.client.Timeout = d }
}

// NewOllamaEmbedder creates an embedder whose vectors must have the given dimensions.
func NewOllamaEmbedder(dimensions int, opts ...OllamaOption) *OllamaEmbedder {
	e := &OllamaEmbedder{
		baseURL:    DefaultOllamaURL,
		model:      DefaultOllamaModel,
		dimensions: dimensions,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns the embedding for one text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, e, text)
}

// EmbedBatch sends all texts in one request.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, failure("marshal request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+ollamaEmbedPath, bytes.NewReader(body))
	if err != nil {
		return nil, failure("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, failure("ollama request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, failure("ollama returned status %d: %s", resp.StatusCode, string(b))
	}
	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, failure("decode response: %v", err)
	}
	if err := CheckBatch(result.Embeddings, len(texts), e.dimensions); err != nil {
		return nil, err
	}
	return result.Embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *OllamaEmbedder) Close() error {
	return nil
}

// String identifies the embedder in logs.
func (e *OllamaEmbedder) String() string {
	return fmt.Sprintf("ollama(%s @ %s)", e.model, e.baseURL)
}
