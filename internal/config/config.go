package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pdf-rag/internal/models"
)

const (
	defaultChunkSize      = 1024 // characters
	defaultChunkOverlap   = 80   // characters
	defaultTopK           = 20
	defaultScoreThreshold = 0.1
	defaultVectorSize     = 768
	defaultLocalDimension = 256
)

type LLMConfig struct {
	Provider  string `yaml:"provider"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	Key       string `yaml:"key"`
	Dimension int    `yaml:"dimension"`
}

type RAGConfig struct {
	ChunkSize      int      `yaml:"chunk_size"`
	ChunkOverlap   int      `yaml:"chunk_overlap"`
	TopK           int      `yaml:"top_k"`
	ScoreThreshold *float32 `yaml:"score_threshold"` // nil means unset
	EncryptionKey  string   `yaml:"encryption_key"`
}

type VectorStoreConfig struct {
	Type       string `yaml:"type"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	Compress   bool   `yaml:"compress"`
}

type DatabaseConfig struct {
	Driver     string `yaml:"driver"`
	DSN        string `yaml:"dsn"`
	Password   string `yaml:"password"`
	Debug      bool   `yaml:"debug"`
	VectorSize int    `yaml:"vector_size"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	UploadDir string `yaml:"upload_dir"`
}

type Config struct {
	LogLevel     string            `yaml:"log_level"`
	EmbedLLM     LLMConfig         `yaml:"embed_llm"`
	InferenceLLM LLMConfig         `yaml:"inference_llm"`
	RAG          RAGConfig         `yaml:"rag"`
	VectorStore  VectorStoreConfig `yaml:"vector_store"`
	Database     DatabaseConfig    `yaml:"database"`
	Server       ServerConfig      `yaml:"server"`
}

// LoadConfig reads the yaml file at path, applies .env / environment overrides
// for secrets and fills unset fields with defaults. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"EMBED_API_KEY":      &cfg.EmbedLLM.Key,
		"LLM_API_KEY":        &cfg.InferenceLLM.Key,
		"DATABASE_DSN":       &cfg.Database.DSN,
		"DATABASE_PASSWORD":  &cfg.Database.Password,
		"RAG_ENCRYPTION_KEY": &cfg.RAG.EncryptionKey,
	}
	for key, field := range overrides {
		if value := os.Getenv(key); value != "" {
			*field = value
		}
	}
}

// ApplyDefaults fills zero valued fields.
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.EmbedLLM.Provider == "" {
		cfg.EmbedLLM.Provider = "ollama"
	}
	if cfg.EmbedLLM.Provider == "ollama" && cfg.EmbedLLM.Model == "" {
		cfg.EmbedLLM.Model = "nomic-embed-text"
	}
	if cfg.EmbedLLM.Provider == "local" && cfg.EmbedLLM.Dimension == 0 {
		cfg.EmbedLLM.Dimension = defaultLocalDimension
	}
	if cfg.InferenceLLM.Provider == "" {
		cfg.InferenceLLM.Provider = "ollama"
	}
	if cfg.InferenceLLM.Provider == "ollama" && cfg.InferenceLLM.Model == "" {
		cfg.InferenceLLM.Model = "llama3.1"
	}

	// only when both are unset, so an explicit 0 overlap survives
	if cfg.RAG.ChunkSize == 0 && cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkSize = defaultChunkSize
		cfg.RAG.ChunkOverlap = defaultChunkOverlap
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = defaultTopK
	}
	if cfg.RAG.ScoreThreshold == nil {
		threshold := float32(defaultScoreThreshold)
		cfg.RAG.ScoreThreshold = &threshold
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "chromem"
	}
	if cfg.VectorStore.Path == "" {
		cfg.VectorStore.Path = "./db"
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "pdf_collection"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgdriver"
	}
	if cfg.Database.VectorSize == 0 {
		cfg.Database.VectorSize = defaultVectorSize
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = "./pdf"
	}
}

func (c *Config) Validate() error {
	if err := ValidateChunking(c.RAG.ChunkSize, c.RAG.ChunkOverlap); err != nil {
		return err
	}
	if c.RAG.TopK < 0 {
		return fmt.Errorf("%w: top_k must not be negative, got %d", models.ErrConfiguration, c.RAG.TopK)
	}
	switch c.EmbedLLM.Provider {
	case "ollama", "openai", "local":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", models.ErrConfiguration, c.EmbedLLM.Provider)
	}
	switch c.InferenceLLM.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("%w: unknown inference provider %q", models.ErrConfiguration, c.InferenceLLM.Provider)
	}
	switch c.VectorStore.Type {
	case "chromem", "postgres":
	default:
		return fmt.Errorf("%w: unknown vector store %q", models.ErrConfiguration, c.VectorStore.Type)
	}
	switch c.Database.Driver {
	case "pgdriver", "pq":
	default:
		return fmt.Errorf("%w: unknown database driver %q", models.ErrConfiguration, c.Database.Driver)
	}
	return nil
}

// ValidateChunking checks 0 <= overlap < maxLength.
func ValidateChunking(maxLength, overlap int) error {
	if maxLength <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrConfiguration, maxLength)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", models.ErrConfiguration, overlap)
	}
	if overlap >= maxLength {
		return fmt.Errorf("%w: chunk overlap %d must be less than chunk size %d", models.ErrConfiguration, overlap, maxLength)
	}
	return nil
}
