package rag

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"pdf-rag/internal/config"
	"pdf-rag/internal/metrics"
	"pdf-rag/internal/models"
	"pdf-rag/internal/parser"
)

// Pipeline extracts, splits and indexes documents. Re-ingesting a document
// appends a second copy of its chunks.
type Pipeline struct {
	extractor PageExtractor
	store     VectorStore
	chunkSize int
	overlap   int
}

func NewPipeline(extractor PageExtractor, store VectorStore, chunkSize, overlap int) (*Pipeline, error) {
	if err := config.ValidateChunking(chunkSize, overlap); err != nil {
		return nil, err
	}
	return &Pipeline{extractor: extractor, store: store, chunkSize: chunkSize, overlap: overlap}, nil
}

// Preview extracts and splits without touching the store.
func (p *Pipeline) Preview(doc models.Document) ([]models.Page, []models.Chunk, error) {
	pages, err := p.extractor.ExtractPages(doc)
	if err != nil {
		return nil, nil, err
	}
	if len(pages) == 0 {
		return nil, nil, fmt.Errorf("%w: %s has no pages", models.ErrUnreadablePDF, doc.Filename)
	}
	chunks, err := parser.Split(pages, p.chunkSize, p.overlap)
	if err != nil {
		return nil, nil, err
	}
	return pages, chunks, nil
}

func (p *Pipeline) Ingest(ctx context.Context, doc models.Document) (*models.IngestionReport, error) {
	filename := filepath.Base(doc.Filename)
	pages, chunks, err := p.Preview(doc)
	if err != nil {
		metrics.IngestionsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	log.Info().Str("filename", filename).Int("pages", len(pages)).Int("chunks", len(chunks)).Msg("Split document")

	if err := p.store.Index(ctx, chunks); err != nil {
		metrics.IngestionsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to index %s: %w", filename, err)
	}

	metrics.IngestionsTotal.WithLabelValues("ok").Inc()
	metrics.ChunksIndexed.Add(float64(len(chunks)))
	return &models.IngestionReport{
		Status:     models.UploadedStatus,
		Filename:   filename,
		PageCount:  len(pages),
		ChunkCount: len(chunks),
	}, nil
}
