// Package config loads configuration from environment variables and .env files.
package config

import (
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the mailrag service
type Config struct {
	// Server
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Corpus
	EmailsDir string `env:"EMAILS_DIR" envDefault:"emails"`

	// Qdrant
	QdrantAddr      string `env:"QDRANT_ADDR" envDefault:"localhost:6334"`
	QdrantAPIKey    string `env:"QDRANT_API_KEY"`
	Collection      string `env:"QDRANT_COLLECTION" envDefault:"email_chunks"`
	VectorSize      int    `env:"QDRANT_VECTOR_SIZE" envDefault:"1536"`
	UpsertBatchSize int    `env:"QDRANT_UPSERT_BATCH_SIZE" envDefault:"50"`

	// Ollama (embeddings)
	OllamaURL      string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	EmbeddingModel string `env:"OLLAMA_EMBEDDING_MODEL" envDefault:"nomic-embed-text"`

	// Mistral (planning + generation)
	MistralAPIKey string `env:"MISTRAL_API_KEY"`
	MistralModel  string `env:"MISTRAL_MODEL" envDefault:"mistral-small-latest"`

	// Retrieval
	TopK int `env:"TOP_K" envDefault:"5"`
}

// Load loads configuration from .env file (if present) and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
