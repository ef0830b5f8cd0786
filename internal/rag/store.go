package rag

import (
	"context"

	"pdf-rag/internal/models"
)

// VectorStore is the single shared, append-only chunk index. Implementations
// embed texts themselves.
type VectorStore interface {
	Index(ctx context.Context, chunks []models.Chunk) error
	Query(ctx context.Context, text string, k int, threshold float32) ([]models.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
	// Check reports models.ErrStorageUnavailable when the backing storage is gone.
	Check(ctx context.Context) error
}

// PageExtractor turns a raw document into pages of text.
type PageExtractor interface {
	ExtractPages(doc models.Document) ([]models.Page, error)
}

// Generator is the language model contract.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
