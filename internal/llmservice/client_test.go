package llmservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"pdf-rag/internal/config"
	"pdf-rag/internal/models"
)

type echoModel struct {
	prompts []string
	err     error
}

func (m *echoModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	var prompt string
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt += text.Text
			}
		}
	}
	m.prompts = append(m.prompts, prompt)
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "echo: " + prompt}}}, nil
}

func (m *echoModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestClient_Generate(t *testing.T) {
	model := &echoModel{}
	client := NewClientWithModel(model, "echo")

	out, err := client.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", out)
	assert.Equal(t, []string{"hello"}, model.prompts)
}

func TestClient_GenerateError(t *testing.T) {
	client := NewClientWithModel(&echoModel{err: errors.New("model offline")}, "echo")

	_, err := client.Generate(context.Background(), "hello")
	assert.EqualError(t, err, "model offline")
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(&config.LLMConfig{Provider: "local"})
	assert.ErrorIs(t, err, models.ErrConfiguration)
}
