package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-rag/internal/embedding"
	"pdf-rag/internal/models"
)

type brokenEmbedder struct{}

func (brokenEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("dial tcp 127.0.0.1:11434: connection refused")
}

func (brokenEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("dial tcp 127.0.0.1:11434: connection refused")
}

func newTestManager(t *testing.T, dir string) *VectorDBManager {
	t.Helper()
	m, err := NewVectorDBManager(Options{Path: dir, Collection: "test"}, embedding.NewLocalEmbedder(128))
	require.NoError(t, err)
	return m
}

func chunk(text string) models.Chunk {
	return models.Chunk{Content: text, Source: "doc.pdf", PageNumber: 1, Length: len([]rune(text))}
}

func TestIndex_AppendsAndCounts(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, t.TempDir())

	require.NoError(t, m.Index(ctx, []models.Chunk{chunk("alpha beta"), chunk("gamma delta")}))
	require.NoError(t, m.Index(ctx, []models.Chunk{chunk("alpha beta")}))
	require.NoError(t, m.Index(ctx, nil))

	count, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestIndex_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	m := newTestManager(t, dir)
	require.NoError(t, m.Index(ctx, []models.Chunk{chunk("persistent marker text")}))

	reopened := newTestManager(t, dir)
	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := reopened.Query(ctx, "persistent marker text", 5, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "persistent marker text", results[0].Content)
	assert.Equal(t, "doc.pdf", results[0].Source)
	assert.Equal(t, 1, results[0].PageNumber)
}

func TestQuery_ThresholdAboveOneIsEmpty(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, t.TempDir())
	require.NoError(t, m.Index(ctx, []models.Chunk{chunk("exact match"), chunk("something else")}))

	results, err := m.Query(ctx, "exact match", 10, 1.1)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQuery_NeverMoreThanK(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, t.TempDir())

	chunks := make([]models.Chunk, 8)
	for i := range chunks {
		chunks[i] = chunk(fmt.Sprintf("shared words here variant%d", i))
	}
	require.NoError(t, m.Index(ctx, chunks))

	results, err := m.Query(ctx, "shared words here", 3, 0.1)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestQuery_OrderedByScoreThenInsertion(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, t.TempDir())

	require.NoError(t, m.Index(ctx, []models.Chunk{
		{Content: "unrelated compiler notes", Source: "a.pdf", PageNumber: 1},
		{Content: "river delta", Source: "first.pdf", PageNumber: 1},
		{Content: "river delta", Source: "second.pdf", PageNumber: 2},
		{Content: "river", Source: "partial.pdf", PageNumber: 3},
	}))
	require.NoError(t, m.Index(ctx, []models.Chunk{
		{Content: "river delta", Source: "third.pdf", PageNumber: 4},
	}))

	results, err := m.Query(ctx, "river delta", 10, 0.1)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "first.pdf", results[0].Source)
	assert.Equal(t, "second.pdf", results[1].Source)
	assert.Equal(t, "third.pdf", results[2].Source)
	assert.Equal(t, "partial.pdf", results[3].Source)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}

	// k cuts through the tie deterministically
	top, err := m.Query(ctx, "river delta", 2, 0.1)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "first.pdf", top[0].Source)
	assert.Equal(t, "second.pdf", top[1].Source)
}

func TestQuery_EmptyStoreAndZeroK(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, t.TempDir())

	results, err := m.Query(ctx, "anything", 5, 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, m.Index(ctx, []models.Chunk{chunk("anything")}))
	results, err = m.Query(ctx, "anything", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestNewVectorDBManager_MissingDirectory(t *testing.T) {
	_, err := NewVectorDBManager(Options{Path: filepath.Join(t.TempDir(), "missing"), Collection: "test"}, embedding.NewLocalEmbedder(8))
	assert.ErrorIs(t, err, models.ErrStorageUnavailable)
}

func TestNewVectorDBManager_PathIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := NewVectorDBManager(Options{Path: path, Collection: "test"}, embedding.NewLocalEmbedder(8))
	assert.ErrorIs(t, err, models.ErrStorageUnavailable)
}

func TestCheck_DirectoryRemoved(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	require.NoError(t, os.Mkdir(dir, 0o755))
	m := newTestManager(t, dir)
	require.NoError(t, m.Check(context.Background()))

	require.NoError(t, os.RemoveAll(dir))
	assert.ErrorIs(t, m.Check(context.Background()), models.ErrStorageUnavailable)
}

func TestIndexAndQuery_DirectoryRemoved(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "db")
	require.NoError(t, os.Mkdir(dir, 0o755))
	m := newTestManager(t, dir)
	require.NoError(t, m.Index(ctx, []models.Chunk{chunk("first"), chunk("second")}))

	require.NoError(t, os.RemoveAll(dir))

	err := m.Index(ctx, []models.Chunk{chunk("third")})
	assert.ErrorIs(t, err, models.ErrStorageUnavailable)
	assert.NoDirExists(t, dir)

	results, err := m.Query(ctx, "first", 5, 0.1)
	assert.ErrorIs(t, err, models.ErrStorageUnavailable)
	assert.Nil(t, results)
}

func TestEmbeddingFailures(t *testing.T) {
	ctx := context.Background()
	m, err := NewVectorDBManager(Options{Path: t.TempDir(), Collection: "test"}, brokenEmbedder{})
	require.NoError(t, err)

	err = m.Index(ctx, []models.Chunk{chunk("text")})
	assert.ErrorIs(t, err, models.ErrEmbeddingService)

	count, _ := m.Count(ctx)
	assert.Zero(t, count)

	_, err = m.Query(ctx, "text", 5, 0.1)
	assert.ErrorIs(t, err, models.ErrEmbeddingService)
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	key := "0123456789abcdef0123456789abcdef"

	src, err := NewVectorDBManager(Options{Path: t.TempDir(), Collection: "test", EncryptionKey: key}, embedding.NewLocalEmbedder(32))
	require.NoError(t, err)
	require.NoError(t, src.Index(ctx, []models.Chunk{chunk("backup me"), chunk("and me")}))

	snapshot := filepath.Join(t.TempDir(), "snapshot.gob.enc")
	require.NoError(t, src.Export(ctx, snapshot))

	dst, err := NewVectorDBManager(Options{Path: t.TempDir(), Collection: "test", EncryptionKey: key}, embedding.NewLocalEmbedder(32))
	require.NoError(t, err)
	require.NoError(t, dst.Import(ctx, snapshot))

	count, err := dst.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestExport_RequiresKey(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	err := m.Export(context.Background(), filepath.Join(t.TempDir(), "x"))
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestImport_ReplacesCollectionOnDisk(t *testing.T) {
	ctx := context.Background()
	key := "0123456789abcdef0123456789abcdef"
	dir := t.TempDir()
	open := func() *VectorDBManager {
		m, err := NewVectorDBManager(Options{Path: dir, Collection: "test", EncryptionKey: key}, embedding.NewLocalEmbedder(32))
		require.NoError(t, err)
		return m
	}

	m := open()
	require.NoError(t, m.Index(ctx, []models.Chunk{chunk("kept in backup")}))
	snapshot := filepath.Join(t.TempDir(), "snapshot.gob.enc")
	require.NoError(t, m.Export(ctx, snapshot))

	require.NoError(t, m.Index(ctx, []models.Chunk{chunk("indexed after backup")}))
	require.NoError(t, m.Import(ctx, snapshot))

	count, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	reopened := open()
	count, err = reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// new records continue after the restored ones
	require.NoError(t, reopened.Index(ctx, []models.Chunk{chunk("kept in backup")}))
	results, err := reopened.Query(ctx, "kept in backup", 10, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NotEqual(t, results[0].ID, results[1].ID)
	for _, r := range results {
		assert.NotEqual(t, "indexed after backup", r.Content)
	}
}

func TestImport_BadSnapshotKeepsCollection(t *testing.T) {
	ctx := context.Background()
	key := "0123456789abcdef0123456789abcdef"
	dir := t.TempDir()
	m, err := NewVectorDBManager(Options{Path: dir, Collection: "test", EncryptionKey: key}, embedding.NewLocalEmbedder(32))
	require.NoError(t, err)
	require.NoError(t, m.Index(ctx, []models.Chunk{chunk("still here")}))

	garbage := filepath.Join(t.TempDir(), "garbage.enc")
	require.NoError(t, os.WriteFile(garbage, []byte("not a snapshot"), 0o644))
	require.Error(t, m.Import(ctx, garbage))

	reopened, err := NewVectorDBManager(Options{Path: dir, Collection: "test", EncryptionKey: key}, embedding.NewLocalEmbedder(32))
	require.NoError(t, err)
	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
