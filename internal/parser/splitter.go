package parser

import (
	"strings"

	"pdf-rag/internal/config"
	"pdf-rag/internal/models"
)

// Split cuts every page into windows of at most maxLength runes. Window i+1
// starts maxLength-overlap runes after window i, so neighbours on the same
// page share exactly overlap runes. The last window of a page is kept even
// when it is short. Blank pages produce no chunks.
func Split(pages []models.Page, maxLength, overlap int) ([]models.Chunk, error) {
	if err := config.ValidateChunking(maxLength, overlap); err != nil {
		return nil, err
	}

	var chunks []models.Chunk
	for _, page := range pages {
		if strings.TrimSpace(page.Content) == "" {
			continue
		}
		for i, text := range chunkContent(page.Content, maxLength, overlap) {
			chunks = append(chunks, models.Chunk{
				Content:    text,
				Source:     page.Source,
				PageNumber: page.PageNumber,
				ChunkIndex: i,
				Length:     len([]rune(text)),
			})
		}
	}
	return chunks, nil
}

// chunk content into chunks with maxChars and overlapChars
func chunkContent(content string, maxChars, overlapChars int) []string {
	runes := []rune(content)
	contentLen := len(runes)
	if contentLen == 0 {
		return nil
	}

	var chunks []string
	step := maxChars - overlapChars
	for start := 0; ; start += step {
		end := min(start+maxChars, contentLen)
		chunks = append(chunks, string(runes[start:end]))
		if end == contentLen {
			break
		}
	}
	return chunks
}
