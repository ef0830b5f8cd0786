package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-rag/internal/models"
	"pdf-rag/internal/parser/parsertest"
)

func TestExtractPages_ReadsEveryPage(t *testing.T) {
	doc := models.Document{
		Filename: "/uploads/guide.pdf",
		Content:  parsertest.BuildPDF("First page about gophers", "Second page about channels"),
	}

	pages, err := NewPDFExtractor().ExtractPages(doc)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Contains(t, pages[0].Content, "gophers")
	assert.Contains(t, pages[1].Content, "channels")
	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Equal(t, 2, pages[1].PageNumber)
	assert.Equal(t, "guide.pdf", pages[0].Source)
}

func TestExtractPages_ZeroPages(t *testing.T) {
	_, err := NewPDFExtractor().ExtractPages(models.Document{Filename: "empty.pdf", Content: parsertest.BuildPDF()})
	assert.ErrorIs(t, err, models.ErrUnreadablePDF)
}

func TestExtractPages_NotAPDF(t *testing.T) {
	tests := map[string][]byte{
		"empty":   nil,
		"garbage": []byte("this is definitely not a pdf"),
		"header":  []byte("%PDF-1.4\nbroken"),
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewPDFExtractor().ExtractPages(models.Document{Filename: "bad.pdf", Content: content})
			assert.ErrorIs(t, err, models.ErrUnreadablePDF)
		})
	}
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("a.pdf"))
	assert.True(t, IsPDF("dir/B.PDF"))
	assert.False(t, IsPDF("notes.txt"))
}
