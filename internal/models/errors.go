package models

import "errors"

var (
	ErrConfiguration      = errors.New("invalid configuration")
	ErrUnreadablePDF      = errors.New("unreadable pdf")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrEmbeddingService   = errors.New("embedding service error")
	ErrGeneration         = errors.New("generation error")
)
