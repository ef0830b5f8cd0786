package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"pdf-rag/internal/config"
	"pdf-rag/internal/models"
)

// NewEmbedder builds the embedding service selected by the config.
func NewEmbedder(llmConfig *config.LLMConfig) (embeddings.Embedder, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        llmConfig.Provider,
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Creating embedder")

	switch llmConfig.Provider {
	case "ollama":
		return newOllamaEmbedder(llmConfig)
	case "openai":
		return newOpenAIEmbedder(llmConfig)
	case "local":
		return NewLocalEmbedder(llmConfig.Dimension), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", models.ErrConfiguration, llmConfig.Provider)
	}
}

func newOllamaEmbedder(llmConfig *config.LLMConfig) (embeddings.Embedder, error) {
	opts := []ollama.Option{ollama.WithModel(llmConfig.Model)}
	if llmConfig.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize ollama: %v", models.ErrEmbeddingService, err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create embedder: %v", models.ErrEmbeddingService, err)
	}
	return embedder, nil
}

func newOpenAIEmbedder(llmConfig *config.LLMConfig) (embeddings.Embedder, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithEmbeddingModel(llmConfig.Model),
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize openai: %v", models.ErrEmbeddingService, err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create embedder: %v", models.ErrEmbeddingService, err)
	}
	return embedder, nil
}

// EmbedTexts embeds a batch and checks that one non-empty vector came back per
// text. Every failure is reported as models.ErrEmbeddingService.
func EmbedTexts(ctx context.Context, embedder embeddings.Embedder, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingService, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", models.ErrEmbeddingService, len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty embedding for text %d", models.ErrEmbeddingService, i)
		}
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func EmbedQuery(ctx context.Context, embedder embeddings.Embedder, text string) ([]float32, error) {
	vector, err := embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingService, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query embedding", models.ErrEmbeddingService)
	}
	return vector, nil
}
