package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pdf-rag/internal/models"
)

var sampleAnswer = &models.Answer{
	Answer: "Use **channels** to communicate.",
	Sources: []models.Source{
		{Source: "go.pdf", PageContent: "Do not communicate by sharing memory."},
		{Source: "go.pdf", PageContent: "Channels <are> typed conduits."},
	},
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answer.xlsx")
	require.NoError(t, WriteXLSX("how to share data?", sampleAnswer, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{answerSheet, sourcesSheet}, f.GetSheetList())

	query, err := f.GetCellValue(answerSheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "how to share data?", query)

	rows, err := f.GetRows(sourcesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"#", "Source", "Content"}, rows[0])
	assert.Equal(t, "Channels <are> typed conduits.", rows[2][2])
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML("how <to> share?", sampleAnswer, &buf))

	out := buf.String()
	assert.Contains(t, out, "<strong>channels</strong>")
	assert.Contains(t, out, "<h1>how &lt;to&gt; share?</h1>")
	assert.Contains(t, out, "Channels &lt;are&gt; typed conduits.")
	assert.Contains(t, out, "<h2>Sources</h2>")
}

func TestWriteHTML_NoSources(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML("q", &models.Answer{Answer: "No idea."}, &buf))
	assert.NotContains(t, buf.String(), "Sources")
}
