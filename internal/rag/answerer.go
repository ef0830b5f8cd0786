package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/prompts"

	"pdf-rag/internal/metrics"
	"pdf-rag/internal/models"
)

var answerPrompt = prompts.NewPromptTemplate(models.AnswerPromptTemplate, []string{"query", "context"})

// Answerer retrieves chunks for a query and asks the model to answer from them.
type Answerer struct {
	store     VectorStore
	generator Generator
	topK      int
	threshold float32
}

func NewAnswerer(store VectorStore, generator Generator, topK int, threshold float32) *Answerer {
	return &Answerer{store: store, generator: generator, topK: topK, threshold: threshold}
}

// BuildPrompt fills the answer template with the query and the retrieved
// chunk texts joined by blank lines.
func BuildPrompt(query string, results []models.ScoredChunk) (string, error) {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Content
	}
	return answerPrompt.Format(map[string]any{
		"query":   query,
		"context": strings.Join(texts, models.ContextSeparator),
	})
}

// Answer never retries. An empty retrieval still reaches the model, which is
// told to say when the context does not contain the answer.
func (a *Answerer) Answer(ctx context.Context, query string) (*models.Answer, error) {
	start := time.Now()
	results, err := a.store.Query(ctx, query, a.topK, a.threshold)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.RetrievedChunks.Observe(float64(len(results)))
	log.Debug().Str("query", query).Int("results", len(results)).Msg("Retrieved context")

	prompt, err := BuildPrompt(query, results)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	text, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %v", models.ErrGeneration, err)
	}

	sources := make([]models.Source, len(results))
	for i, r := range results {
		sources[i] = models.Source{Source: r.Source, PageContent: r.Content}
	}
	metrics.QueriesTotal.WithLabelValues("ok").Inc()
	metrics.AnswerDuration.Observe(time.Since(start).Seconds())
	return &models.Answer{Answer: text, Sources: sources}, nil
}
