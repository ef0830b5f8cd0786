package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"pdf-rag/internal/config"
	"pdf-rag/internal/models"
)

// Client sends single prompts to the configured language model.
type Client struct {
	llm   llms.Model
	model string
}

func NewClient(llmConfig *config.LLMConfig) (*Client, error) {
	log.Debug().Interface("config", map[string]string{
		"provider": llmConfig.Provider,
		"base_url": llmConfig.BaseURL,
		"model":    llmConfig.Model,
	}).Msg("Creating llm client")

	var (
		llm llms.Model
		err error
	)
	switch llmConfig.Provider {
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(llmConfig.Model)}
		if llmConfig.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
		}
		llm, err = ollama.New(opts...)
	case "openai":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		llm, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("%w: unknown inference provider %q", models.ErrConfiguration, llmConfig.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm: %w", err)
	}
	return NewClientWithModel(llm, llmConfig.Model), nil
}

// NewClientWithModel wraps an already constructed langchaingo model.
func NewClientWithModel(llm llms.Model, model string) *Client {
	return &Client{llm: llm, model: model}
}

// Generate returns the completion for prompt. Errors are returned as-is.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	log.Debug().Str("model", c.model).Int("prompt_len", len(prompt)).Msg("Generating content")
	return llms.GenerateFromSinglePrompt(ctx, c.llm, prompt)
}
