package models

// Document is a raw PDF as handed to the ingestion pipeline.
type Document struct {
	Filename string
	Content  []byte
}

// Page is the extracted text of one PDF page
type Page struct {
	Content    string
	Source     string
	PageNumber int
}

// Chunk represents a parsed chunk with metadata
type Chunk struct {
	Content    string
	Source     string
	PageNumber int
	ChunkIndex int
	Length     int // in runes
}

// ScoredChunk is one entry of a retrieval result.
type ScoredChunk struct {
	ID         string
	Content    string
	Source     string
	PageNumber int
	Score      float32
}

type Source struct {
	Source      string `json:"source"`
	PageContent string `json:"page_content"`
}

type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

type IngestionReport struct {
	Status     string `json:"status"`
	Filename   string `json:"filename"`
	PageCount  int    `json:"page_count"`
	ChunkCount int    `json:"chunk_count"`
}
