package parser

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/models"
)

// PDFExtractor turns raw PDF bytes into one Page per PDF page.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractPages reads every page of the document. Invalid PDFs and PDFs
// without pages fail with models.ErrUnreadablePDF.
func (e *PDFExtractor) ExtractPages(doc models.Document) (pages []models.Page, err error) {
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", models.ErrUnreadablePDF, doc.Filename)
	}

	// the pdf package panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %s: %v", models.ErrUnreadablePDF, doc.Filename, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(doc.Content), int64(len(doc.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrUnreadablePDF, doc.Filename, err)
	}

	source := filepath.Base(doc.Filename)
	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("%w: %s has no pages", models.ErrUnreadablePDF, doc.Filename)
	}

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			log.Warn().Str("filename", source).Int("page", i).Msg("Skipping missing page")
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %s page %d: %v", models.ErrUnreadablePDF, doc.Filename, i, err)
		}
		pages = append(pages, models.Page{
			Content:    pageText,
			Source:     source,
			PageNumber: i,
		})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %s has no readable pages", models.ErrUnreadablePDF, doc.Filename)
	}
	log.Debug().Str("filename", source).Int("pages", len(pages)).Msg("Extracted pages")
	return pages, nil
}

// IsPDF reports whether the filename carries a .pdf extension.
func IsPDF(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) == ".pdf"
}
