package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/wikivec/wikivec/pkg/ratelimit"
)

// EmbedderConfig represents the configuration for the query embedder.
type EmbedderConfig struct {
	Model   string
	BaseURL string
	APIKey  string
	// RequestsPerMinute caps embedding calls client-side. Zero means use
	// the published limit for the model.
	RequestsPerMinute int
}

// Embedder creates query embeddings with the same model that produced the
// dataset vectors.
type Embedder struct {
	Config  EmbedderConfig
	client  *openai.LLM
	limiter *rate.Limiter
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "text-embedding-ada-002"
	}
	if config.RequestsPerMinute == 0 {
		config.RequestsPerMinute = ratelimit.ForModel(config.Model).RPM
	}

	opts := []openai.Option{
		openai.WithEmbeddingModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}
	if config.APIKey != "" {
		opts = append(opts, openai.WithToken(config.APIKey))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{
		Config:  config,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60.0), 1),
	}, nil
}

func NewEmbedder() (*Embedder, error) {
	return NewEmbedderWithConfig(EmbedderConfig{})
}

// CreateEmbedding embeds the given texts, waiting on the client-side rate
// limiter before each API call.
func (e *Embedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	embeddings, err := e.client.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	return embeddings, nil
}

func (e *Embedder) FlattenEmbeddings(embeddings [][]float32) []float32 {
	var flattened []float32
	for _, emb := range embeddings {
		flattened = append(flattened, emb...)
	}
	return flattened
}
