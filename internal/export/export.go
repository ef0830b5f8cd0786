package export

import (
	"bytes"
	"fmt"
	"html"
	"io"

	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldhtml "github.com/yuin/goldmark/renderer/html"

	"pdf-rag/internal/models"
)

const (
	answerSheet  = "Answer"
	sourcesSheet = "Sources"
)

// WriteXLSX saves the query, the answer and its sources as a workbook with
// one sheet for the answer and one row per source.
func WriteXLSX(query string, answer *models.Answer, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", answerSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	f.SetCellValue(answerSheet, "A1", "Query")
	f.SetCellValue(answerSheet, "B1", query)
	f.SetCellValue(answerSheet, "A2", "Answer")
	f.SetCellValue(answerSheet, "B2", answer.Answer)

	if _, err := f.NewSheet(sourcesSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	for i, header := range []string{"#", "Source", "Content"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sourcesSheet, cell, header)
	}
	for i, src := range answer.Sources {
		row := i + 2
		f.SetCellValue(sourcesSheet, fmt.Sprintf("A%d", row), i+1)
		f.SetCellValue(sourcesSheet, fmt.Sprintf("B%d", row), src.Source)
		f.SetCellValue(sourcesSheet, fmt.Sprintf("C%d", row), src.PageContent)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// WriteHTML renders the answer (treated as markdown) followed by the sources.
func WriteHTML(query string, answer *models.Answer, w io.Writer) error {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			goldhtml.WithHardWraps(),
		),
	)
	var body bytes.Buffer
	if err := md.Convert([]byte(answer.Answer), &body); err != nil {
		return fmt.Errorf("failed to render answer: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<body>\n")
	fmt.Fprintf(&buf, "<h1>%s</h1>\n", html.EscapeString(query))
	buf.Write(body.Bytes())
	if len(answer.Sources) > 0 {
		buf.WriteString("<h2>Sources</h2>\n<ol>\n")
		for _, src := range answer.Sources {
			fmt.Fprintf(&buf, "<li><strong>%s</strong><blockquote>%s</blockquote></li>\n",
				html.EscapeString(src.Source), html.EscapeString(src.PageContent))
		}
		buf.WriteString("</ol>\n")
	}
	buf.WriteString("</body>\n</html>\n")

	_, err := w.Write(buf.Bytes())
	return err
}
