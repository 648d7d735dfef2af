package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the Safelift admin server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Embedding EmbeddingConfig
	Vector    VectorConfig
	Export    ExportConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// EmbeddingConfig selects the text-embedding provider. An empty Provider
// means embeddings are unconfigured: entry processing fails with a
// deterministic result and search returns empty.
type EmbeddingConfig struct {
	Provider string
	Timeout  time.Duration
	OpenAI   OpenAIConfig
	Ollama   OllamaConfig
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

// VectorConfig selects the vector index backend. An empty Backend means no
// index is configured and the null-object backend is used.
type VectorConfig struct {
	Backend  string
	Timeout  time.Duration
	Pinecone PineconeConfig
	Pgvector PgvectorConfig
}

type PineconeConfig struct {
	APIKey    string
	IndexHost string
	Namespace string
}

type PgvectorConfig struct {
	Dimensions int
}

type ExportConfig struct {
	MediaRoot     string
	RetentionDays int
	SweepInterval time.Duration
	PDFRenderer   string
}

var validEmbeddingProviders = map[string]bool{
	"openai": true,
	"ollama": true,
}

var validVectorBackends = map[string]bool{
	"pinecone": true,
	"pgvector": true,
}

var validPDFRenderers = map[string]bool{
	"pdf":  true,
	"text": true,
}

// Load reads configuration from environment variables and returns a validated
// Config. Returns an error with a descriptive message if any required value
// is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("SAFELIFT_PORT", 8080),
			Env:  envString("SAFELIFT_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Embedding: EmbeddingConfig{
			Provider: os.Getenv("EMBEDDING_PROVIDER"),
			Timeout:  envDurationSecs("EMBEDDING_TIMEOUT_SECS", 30*time.Second),
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com"),
				Model:   envString("OPENAI_EMBEDDING_MODEL", "text-embedding-ada-002"),
			},
			Ollama: OllamaConfig{
				BaseURL: envString("OLLAMA_BASE_URL", "http://localhost:11434"),
				Model:   envString("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			},
		},
		Vector: VectorConfig{
			Backend: os.Getenv("VECTOR_BACKEND"),
			Timeout: envDurationSecs("VECTOR_TIMEOUT_SECS", 30*time.Second),
			Pinecone: PineconeConfig{
				APIKey:    os.Getenv("PINECONE_API_KEY"),
				IndexHost: os.Getenv("PINECONE_INDEX_HOST"),
				Namespace: envString("PINECONE_NAMESPACE", ""),
			},
			Pgvector: PgvectorConfig{
				Dimensions: envInt("PGVECTOR_DIMENSIONS", 1536),
			},
		},
		Export: ExportConfig{
			MediaRoot:     envString("EXPORT_MEDIA_ROOT", "./media"),
			RetentionDays: envInt("EXPORT_RETENTION_DAYS", 30),
			SweepInterval: envDuration("EXPORT_SWEEP_INTERVAL", time.Hour),
			PDFRenderer:   envString("EXPORT_PDF_RENDERER", "pdf"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	// Embedding and vector backends are optional: writes fail with a
	// deterministic result and search degrades to empty when unset.
	// A set-but-unknown value is a config mistake and rejected.
	if p := c.Embedding.Provider; p != "" && !validEmbeddingProviders[p] {
		return fmt.Errorf("EMBEDDING_PROVIDER must be one of openai, ollama; got %q", p)
	}
	if c.Embedding.Provider == "openai" && c.Embedding.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when EMBEDDING_PROVIDER is openai")
	}

	if b := c.Vector.Backend; b != "" && !validVectorBackends[b] {
		return fmt.Errorf("VECTOR_BACKEND must be one of pinecone, pgvector; got %q", b)
	}
	if c.Vector.Backend == "pinecone" {
		if c.Vector.Pinecone.APIKey == "" {
			return fmt.Errorf("PINECONE_API_KEY is required when VECTOR_BACKEND is pinecone")
		}
		if c.Vector.Pinecone.IndexHost == "" {
			return fmt.Errorf("PINECONE_INDEX_HOST is required when VECTOR_BACKEND is pinecone")
		}
		if !strings.HasPrefix(c.Vector.Pinecone.IndexHost, "http://") && !strings.HasPrefix(c.Vector.Pinecone.IndexHost, "https://") {
			return fmt.Errorf("PINECONE_INDEX_HOST must start with http:// or https://, got %q", c.Vector.Pinecone.IndexHost)
		}
	}

	if c.Export.RetentionDays < 1 {
		return fmt.Errorf("EXPORT_RETENTION_DAYS must be at least 1, got %d", c.Export.RetentionDays)
	}
	if r := c.Export.PDFRenderer; !validPDFRenderers[r] {
		return fmt.Errorf("EXPORT_PDF_RENDERER must be one of pdf, text; got %q", r)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
