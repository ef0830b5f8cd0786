package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"pdf-rag/internal/config"
	"pdf-rag/internal/embedding"
	"pdf-rag/internal/models"
)

type Document struct {
	bun.BaseModel  `bun:"table:documents,alias:d"`
	ID             int64           `bun:"id,pk,autoincrement"`
	Content        string          `bun:"content,notnull"`
	Embedding      pgvector.Vector `bun:"embedding,notnull,type:vector"`
	SourceFilename string          `bun:"source_filename,notnull"`
	PageNumber     int             `bun:"page_number"`
	ChunkIndex     int             `bun:"chunk_index"`
	Length         int             `bun:"length"`
}

type scoredDocument struct {
	ID             int64   `bun:"id"`
	Content        string  `bun:"content"`
	SourceFilename string  `bun:"source_filename"`
	PageNumber     int     `bun:"page_number"`
	Score          float64 `bun:"score"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens a postgres connection with the configured driver.
func ConnectDB(dbConfig *config.DatabaseConfig) (*sql.DB, error) {
	if dbConfig.DSN == "" {
		return nil, fmt.Errorf("%w: database dsn is required", models.ErrConfiguration)
	}
	switch dbConfig.Driver {
	case "pq":
		return sql.Open("postgres", dbConfig.DSN)
	case "pgdriver", "":
		opts := []pgdriver.Option{pgdriver.WithDSN(dbConfig.DSN)}
		if dbConfig.Password != "" {
			opts = append(opts, pgdriver.WithPassword(dbConfig.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", models.ErrConfiguration, dbConfig.Driver)
	}
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return err
	}
	_, err := db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx)
	return err
}

// PGStore keeps chunk vectors in a pgvector table. Insertion order is the
// serial id.
type PGStore struct {
	db         *bun.DB
	embedder   embeddings.Embedder
	vectorSize int
}

func NewPGStore(ctx context.Context, db *bun.DB, embedder embeddings.Embedder, vectorSize int) (*PGStore, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	if err := InitDB(ctx, db); err != nil {
		return nil, fmt.Errorf("%w: failed to initialize schema: %v", models.ErrStorageUnavailable, err)
	}
	return &PGStore{db: db, embedder: embedder, vectorSize: vectorSize}, nil
}

// Index embeds the chunks and inserts them in a single transaction.
func (s *PGStore) Index(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := embedding.EmbedTexts(ctx, s.embedder, texts)
	if err != nil {
		return err
	}

	docs := make([]Document, len(chunks))
	for i, c := range chunks {
		if s.vectorSize > 0 && len(vectors[i]) != s.vectorSize {
			return fmt.Errorf("%w: embedding has %d dimensions, expected %d", models.ErrEmbeddingService, len(vectors[i]), s.vectorSize)
		}
		docs[i] = Document{
			Content:        c.Content,
			Embedding:      pgvector.NewVector(vectors[i]),
			SourceFilename: c.Source,
			PageNumber:     c.PageNumber,
			ChunkIndex:     c.ChunkIndex,
			Length:         c.Length,
		}
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&docs).Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: failed to store documents: %v", models.ErrStorageUnavailable, err)
	}
	log.Debug().Int("chunks", len(docs)).Msg("Stored documents")
	return nil
}

// Query scores with cosine similarity (1 - cosine distance).
func (s *PGStore) Query(ctx context.Context, text string, k int, threshold float32) ([]models.ScoredChunk, error) {
	queryEmbedding, err := embedding.EmbedQuery(ctx, s.embedder, text)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return []models.ScoredChunk{}, nil
	}

	vec := pgvector.NewVector(queryEmbedding)
	var rows []scoredDocument
	err = s.db.NewSelect().
		Model((*Document)(nil)).
		Column("id", "content", "source_filename", "page_number").
		ColumnExpr("1 - (embedding <=> ?) AS score", vec).
		Where("1 - (embedding <=> ?) >= ?", vec, threshold).
		OrderExpr("score DESC, id ASC").
		Limit(k).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to search documents: %v", models.ErrStorageUnavailable, err)
	}

	out := make([]models.ScoredChunk, len(rows))
	for i, r := range rows {
		out[i] = models.ScoredChunk{
			ID:         fmt.Sprint(r.ID),
			Content:    r.Content,
			Source:     r.SourceFilename,
			PageNumber: r.PageNumber,
			Score:      float32(r.Score),
		}
	}
	return out, nil
}

func (s *PGStore) Count(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*Document)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	return n, nil
}

func (s *PGStore) Check(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *PGStore) Close() error {
	return s.db.Close()
}
