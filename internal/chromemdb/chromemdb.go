package chromemdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"pdf-rag/internal/embedding"
	"pdf-rag/internal/helper"
	"pdf-rag/internal/models"
)

// VectorDBManager is the directory backed vector store. Every record is a
// chromem document holding the chunk text, its embedding and metadata.
type VectorDBManager struct {
	db            *chromem.DB
	collection    *chromem.Collection
	embedder      embeddings.Embedder
	dbPath        string
	compress      bool
	encryptionKey string
}

type Options struct {
	Path          string
	Collection    string
	Compress      bool
	EncryptionKey string
}

// NewVectorDBManager opens the persistent database at opts.Path. The directory
// must already exist.
func NewVectorDBManager(opts Options, embedder embeddings.Embedder) (*VectorDBManager, error) {
	if err := checkDir(opts.Path); err != nil {
		return nil, err
	}

	db, err := chromem.NewPersistentDB(opts.Path, opts.Compress)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database at %s: %v", models.ErrStorageUnavailable, opts.Path, err)
	}

	m := &VectorDBManager{
		db:            db,
		embedder:      embedder,
		dbPath:        opts.Path,
		compress:      opts.Compress,
		encryptionKey: opts.EncryptionKey,
	}
	if _, err := m.GetOrCreateCollection(opts.Collection); err != nil {
		return nil, err
	}
	return m, nil
}

func checkDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", models.ErrStorageUnavailable, path)
	}
	return nil
}

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection(collectionName string) (*chromem.Collection, error) {
	embed := func(ctx context.Context, text string) ([]float32, error) {
		return embedding.EmbedQuery(ctx, m.embedder, text)
	}
	c, err := m.db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create/get collection: %v", models.ErrStorageUnavailable, err)
	}
	m.collection = c
	return c, nil
}

// Index embeds all chunks and appends them to the collection. Nothing is
// written when any embedding fails. The persistent collection writes every
// document to disk before AddDocuments returns.
func (m *VectorDBManager) Index(ctx context.Context, chunks []models.Chunk) error {
	// chromem recreates a missing directory without collection metadata
	if err := checkDir(m.dbPath); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := embedding.EmbedTexts(ctx, m.embedder, texts)
	if err != nil {
		return err
	}

	// insertion ordinal, used to break score ties
	seq := m.collection.Count()
	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		id, err := helper.GenerateUUID()
		if err != nil {
			return err
		}
		docs[i] = chromem.Document{
			ID:        id,
			Content:   c.Content,
			Metadata:  createMetadata(c, seq+i),
			Embedding: vectors[i],
		}
	}

	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("%w: failed to add documents: %v", models.ErrStorageUnavailable, err)
	}
	log.Debug().Int("chunks", len(docs)).Int("total", m.collection.Count()).Msg("Indexed chunks")
	return nil
}

func createMetadata(c models.Chunk, seq int) map[string]string {
	return map[string]string{
		models.MetaSource:     c.Source,
		models.MetaPage:       strconv.Itoa(c.PageNumber),
		models.MetaChunkIndex: strconv.Itoa(c.ChunkIndex),
		models.MetaLength:     strconv.Itoa(c.Length),
		models.MetaSeq:        strconv.Itoa(seq),
	}
}

// Query returns up to k records whose cosine similarity to text is at least
// threshold, best first. Equal scores keep insertion order.
func (m *VectorDBManager) Query(ctx context.Context, text string, k int, threshold float32) ([]models.ScoredChunk, error) {
	if err := checkDir(m.dbPath); err != nil {
		return nil, err
	}
	queryEmbedding, err := embedding.EmbedQuery(ctx, m.embedder, text)
	if err != nil {
		return nil, err
	}

	total := m.collection.Count()
	if k <= 0 || total == 0 {
		return []models.ScoredChunk{}, nil
	}

	// score every record so ties at the k boundary resolve by seq
	results, err := m.SearchWithQueryOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       total,
	})
	if err != nil {
		return nil, err
	}

	type candidate struct {
		result chromem.Result
		seq    int
	}
	candidates := make([]candidate, 0, len(results))
	for _, r := range results {
		if r.Similarity < threshold {
			continue
		}
		seq, _ := strconv.Atoi(r.Metadata[models.MetaSeq])
		candidates = append(candidates, candidate{result: r, seq: seq})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].result.Similarity != candidates[j].result.Similarity {
			return candidates[i].result.Similarity > candidates[j].result.Similarity
		}
		return candidates[i].seq < candidates[j].seq
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]models.ScoredChunk, len(candidates))
	for i, c := range candidates {
		page, _ := strconv.Atoi(c.result.Metadata[models.MetaPage])
		out[i] = models.ScoredChunk{
			ID:         c.result.ID,
			Content:    c.result.Content,
			Source:     c.result.Metadata[models.MetaSource],
			PageNumber: page,
			Score:      c.result.Similarity,
		}
	}
	log.Debug().Int("candidates", len(results)).Int("results", len(out)).Msg("Queried vector store")
	return out, nil
}

// SearchWithQueryOptions performs a raw chromem similarity search
func (m *VectorDBManager) SearchWithQueryOptions(ctx context.Context, opts chromem.QueryOptions) ([]chromem.Result, error) {
	// exit if query or embedding is not provided
	if opts.QueryText == "" && opts.QueryEmbedding == nil {
		return nil, fmt.Errorf("either query or embedding must be provided")
	}

	results, err := m.collection.QueryWithOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query by similarity: %v", models.ErrStorageUnavailable, err)
	}
	return results, nil
}

func (m *VectorDBManager) Count(ctx context.Context) (int, error) {
	return m.collection.Count(), nil
}

// Check verifies the storage directory is still present.
func (m *VectorDBManager) Check(ctx context.Context) error {
	return checkDir(m.dbPath)
}

func (m *VectorDBManager) Path() string {
	return m.dbPath
}

// Export writes an encrypted snapshot of the collection to filePath.
func (m *VectorDBManager) Export(ctx context.Context, filePath string) error {
	if m.encryptionKey == "" {
		return fmt.Errorf("%w: encryption key is required", models.ErrConfiguration)
	}
	if filePath == "" {
		filePath = filepath.Join(m.dbPath, m.collection.Name+".chromem")
	}

	log.Debug().Str("collection", m.collection.Name).Str("file", filePath).Bool("compress", m.compress).Msg("Exporting collection")
	if err := m.db.ExportToFile(filePath, m.compress, m.encryptionKey, m.collection.Name); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import replaces the collection with a snapshot written by Export. The
// snapshot is decoded before anything on disk is removed.
func (m *VectorDBManager) Import(ctx context.Context, filePath string) error {
	if m.encryptionKey == "" {
		return fmt.Errorf("%w: encryption key is required", models.ErrConfiguration)
	}
	if err := checkDir(m.dbPath); err != nil {
		return err
	}
	name := m.collection.Name

	snapshot := chromem.NewDB()
	if err := snapshot.ImportFromFile(filePath, m.encryptionKey, name); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	if snapshot.GetCollection(name, nil) == nil {
		return fmt.Errorf("failed to import database: %s has no collection %q", filePath, name)
	}

	// documents indexed after the backup must not survive on disk
	if err := m.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("%w: failed to delete collection: %v", models.ErrStorageUnavailable, err)
	}
	if err := m.db.ImportFromFile(filePath, m.encryptionKey, name); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	if _, err := m.GetOrCreateCollection(name); err != nil {
		return err
	}
	log.Info().Str("collection", name).Int("count", m.collection.Count()).Msg("Imported collection")
	return nil
}
