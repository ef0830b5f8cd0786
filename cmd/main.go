package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/chromemdb"
	"pdf-rag/internal/config"
	"pdf-rag/internal/db"
	"pdf-rag/internal/embedding"
	"pdf-rag/internal/export"
	"pdf-rag/internal/helper"
	"pdf-rag/internal/llmservice"
	"pdf-rag/internal/models"
	"pdf-rag/internal/parser"
	"pdf-rag/internal/rag"
	"pdf-rag/internal/server"
)

const configFilePath = "./configs/config.yaml"

// app holds everything built from the config. closeFn releases the store.
type app struct {
	cfg     *config.Config
	store   rag.VectorStore
	svc     *rag.Service
	closeFn func()
}

func main() {
	configPath := flag.String("config", configFilePath, "Path to the config file")
	initDirs := flag.Bool("init", false, "Create the vector store and upload directories")
	filePath := flag.String("file", "", "Path to the PDF file to ingest")
	dryRun := flag.Bool("dry-run", false, "Dry run, print chunks without saving to the vector store")
	query := flag.String("query", "", "Question to answer from the ingested documents")
	ask := flag.String("ask", "", "Prompt sent directly to the model without retrieval")
	health := flag.Bool("health", false, "Run the healthcheck")
	serve := flag.Bool("serve", false, "Start the HTTP server")
	backup := flag.String("backup", "", "Export the chromem collection to an encrypted file")
	restore := flag.String("restore", "", "Import the chromem collection from an encrypted file")
	xlsxPath := flag.String("xlsx", "", "Save the -query answer as an xlsx workbook")
	htmlPath := flag.String("html", "", "Save the -query answer as an html page")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	helper.SetupLogger(cfg.LogLevel)
	log.Debug().Str("store", cfg.VectorStore.Type).Str("embedder", cfg.EmbedLLM.Provider).Str("llm", cfg.InferenceLLM.Provider).Msg("Loaded config")

	if *filePath != "" && *query != "" {
		log.Fatal().Msg("Please provide either a document file using the -file flag or a query using the -query flag, but not both")
	}

	if *initDirs {
		initFolders(cfg)
	}

	ctx := context.Background()

	if *filePath != "" && *dryRun {
		previewFile(cfg, *filePath)
		return
	}

	if *filePath == "" && *query == "" && *ask == "" && !*health && !*serve && *backup == "" && *restore == "" {
		if *initDirs {
			return
		}
		flag.Usage()
		os.Exit(2)
	}

	a := newApp(ctx, cfg)
	defer a.closeFn()

	switch {
	case *restore != "":
		restoreStore(ctx, a, *restore)
	case *backup != "":
		backupStore(ctx, a, *backup)
	case *filePath != "":
		ingestFile(ctx, a, *filePath)
	case *query != "":
		answerQuery(ctx, a, *query, *xlsxPath, *htmlPath)
	case *ask != "":
		askModel(ctx, a, *ask)
	case *health:
		healthCheck(ctx, a)
	case *serve:
		serveHTTP(a)
	}
}

func initFolders(cfg *config.Config) {
	folders := []string{cfg.Server.UploadDir}
	if cfg.VectorStore.Type == "chromem" {
		folders = append(folders, cfg.VectorStore.Path)
	}
	for _, folder := range folders {
		if err := helper.CreateFolder(folder); err != nil {
			log.Fatal().Err(err).Msg("Error creating folder")
		}
		log.Info().Str("path", folder).Msg("Folder ready")
	}
}

func newApp(ctx context.Context, cfg *config.Config) *app {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	a := &app{cfg: cfg, closeFn: func() {}}
	switch cfg.VectorStore.Type {
	case "postgres":
		sqldb, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to database")
		}
		bunDB := db.NewDB(sqldb, cfg.Database.Debug)
		store, err := db.NewPGStore(ctx, bunDB, embedder, cfg.Database.VectorSize)
		if err != nil {
			log.Fatal().Err(err).Msg("Error initializing database")
		}
		a.store = store
		a.closeFn = func() { store.Close() }
	default:
		store, err := chromemdb.NewVectorDBManager(chromemdb.Options{
			Path:          cfg.VectorStore.Path,
			Collection:    cfg.VectorStore.Collection,
			Compress:      cfg.VectorStore.Compress,
			EncryptionKey: cfg.RAG.EncryptionKey,
		}, embedder)
		if err != nil {
			log.Fatal().Err(err).Msg("Error creating vector database manager, run with -init to create the directory")
		}
		a.store = store
	}

	client, err := llmservice.NewClient(&cfg.InferenceLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing llm client")
	}

	pipeline, err := rag.NewPipeline(parser.NewPDFExtractor(), a.store, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating pipeline")
	}
	answerer := rag.NewAnswerer(a.store, client, cfg.RAG.TopK, *cfg.RAG.ScoreThreshold)
	a.svc = rag.NewService(pipeline, answerer, client, a.store)
	return a
}

func previewFile(cfg *config.Config, filePath string) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading file")
	}

	// preview never touches the store
	pipeline, err := rag.NewPipeline(parser.NewPDFExtractor(), nil, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating pipeline")
	}
	pages, chunks, err := pipeline.Preview(models.Document{Filename: filePath, Content: content})
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing document")
	}
	log.Info().Int("pages", len(pages)).Int("chunks", len(chunks)).Msg("Parsed content")
	helper.PrettyPrint(chunks)
}

func ingestFile(ctx context.Context, a *app, filePath string) {
	report, err := a.svc.IngestFile(ctx, filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting document")
	}
	helper.PrettyPrint(report)
}

func answerQuery(ctx context.Context, a *app, query, xlsxPath, htmlPath string) {
	answer, err := a.svc.Answer(ctx, query)
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	for _, s := range answer.Sources {
		fmt.Printf("[%s]\n%s\n\n", s.Source, s.PageContent)
	}

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", answer.Answer)

	if xlsxPath != "" {
		if err := export.WriteXLSX(query, answer, xlsxPath); err != nil {
			log.Fatal().Err(err).Msg("Error writing xlsx")
		}
		log.Info().Str("path", xlsxPath).Msg("Saved answer")
	}
	if htmlPath != "" {
		f, err := os.Create(htmlPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Error creating html file")
		}
		defer f.Close()
		if err := export.WriteHTML(query, answer, f); err != nil {
			log.Fatal().Err(err).Msg("Error writing html")
		}
		log.Info().Str("path", htmlPath).Msg("Saved answer")
	}
}

func askModel(ctx context.Context, a *app, prompt string) {
	out, err := a.svc.ProcessQuery(ctx, prompt)
	if err != nil {
		log.Fatal().Err(err).Msg("Error calling model")
	}
	fmt.Printf("%s\n", out)
}

func healthCheck(ctx context.Context, a *app) {
	if err := a.svc.HealthCheck(ctx); err != nil {
		log.Fatal().Err(err).Msg("Healthcheck failed")
	}
	count, _ := a.svc.Count(ctx)
	log.Info().Int("records", count).Msg("Healthy")
}

func chromemStore(a *app) *chromemdb.VectorDBManager {
	m, ok := a.store.(*chromemdb.VectorDBManager)
	if !ok {
		log.Fatal().Str("store", a.cfg.VectorStore.Type).Msg("Backup and restore need the chromem vector store")
	}
	return m
}

func backupStore(ctx context.Context, a *app, filePath string) {
	if err := chromemStore(a).Export(ctx, filePath); err != nil {
		log.Fatal().Err(err).Msg("Error exporting collection")
	}
	log.Info().Str("file", filePath).Msg("Exported collection")
}

func restoreStore(ctx context.Context, a *app, filePath string) {
	if err := chromemStore(a).Import(ctx, filePath); err != nil {
		log.Fatal().Err(err).Msg("Error importing collection")
	}
}

func serveHTTP(a *app) {
	if err := helper.CreateFolder(a.cfg.Server.UploadDir); err != nil {
		log.Fatal().Err(err).Msg("Error creating upload folder")
	}
	if a.cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:    a.cfg.Server.Addr,
		Handler: server.NewRouter(a.svc, a.cfg.Server.UploadDir),
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
