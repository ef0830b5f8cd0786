package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"pdf-rag/internal/models"
)

// Service is the surface handed to the CLI and the HTTP layer. All
// collaborators are built by the caller.
type Service struct {
	pipeline  *Pipeline
	answerer  *Answerer
	generator Generator
	store     VectorStore
}

func NewService(pipeline *Pipeline, answerer *Answerer, generator Generator, store VectorStore) *Service {
	return &Service{pipeline: pipeline, answerer: answerer, generator: generator, store: store}
}

func (s *Service) Ingest(ctx context.Context, doc models.Document) (*models.IngestionReport, error) {
	return s.pipeline.Ingest(ctx, doc)
}

// IngestFile ingests a PDF that was already written to path.
func (s *Service) IngestFile(ctx context.Context, path string) (*models.IngestionReport, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnreadablePDF, err)
	}
	return s.Ingest(ctx, models.Document{Filename: filepath.Base(path), Content: content})
}

func (s *Service) Answer(ctx context.Context, query string) (*models.Answer, error) {
	return s.answerer.Answer(ctx, query)
}

// ProcessQuery sends text straight to the model without retrieval.
func (s *Service) ProcessQuery(ctx context.Context, text string) (string, error) {
	out, err := s.generator.Generate(ctx, text)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrGeneration, err)
	}
	return out, nil
}

// HealthCheck verifies storage, a direct model call and the retrieval path.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.store.Check(ctx); err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	if _, err := s.ProcessQuery(ctx, models.HealthCheckQuery); err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	if _, err := s.Answer(ctx, models.HealthCheckQuery); err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	log.Debug().Msg("Healthcheck passed")
	return nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}
