package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Host        string `mapstructure:"HOST"`
	Port        string `mapstructure:"PORT"`
	GinMode     string `mapstructure:"GIN_MODE"`
	Environment string `mapstructure:"ENVIRONMENT"`

	// Database
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Redis (optional chat-history cache)
	RedisURL string `mapstructure:"REDIS_URL"`

	// Embedding provider (OpenAI compatible)
	EmbeddingAPIKey     string `mapstructure:"EMBEDDING_API_KEY"`
	EmbeddingBaseURL    string `mapstructure:"EMBEDDING_BASE_URL"`
	EmbeddingModel      string `mapstructure:"EMBEDDING_MODEL"`
	EmbeddingDimensions int    `mapstructure:"EMBEDDING_DIMENSIONS"`

	// Generative model (OpenAI compatible chat completions)
	LLMAPIKey  string `mapstructure:"LLM_API_KEY"`
	LLMBaseURL string `mapstructure:"LLM_BASE_URL"`
	LLMModel   string `mapstructure:"LLM_MODEL"`

	// Reranker (Cohere compatible)
	RerankAPIKey  string `mapstructure:"RERANK_API_KEY"`
	RerankBaseURL string `mapstructure:"RERANK_BASE_URL"`
	RerankModel   string `mapstructure:"RERANK_MODEL"`

	// RAG tuning
	ChunkSize     int `mapstructure:"CHUNK_SIZE"`
	ChunkOverlap  int `mapstructure:"CHUNK_OVERLAP"`
	TopKRetrieval int `mapstructure:"TOP_K_RETRIEVAL"`
	TopNRerank    int `mapstructure:"TOP_N_RERANK"`

	// File storage
	StoragePath   string `mapstructure:"STORAGE_PATH"`
	MaxUploadSize int64  `mapstructure:"MAX_UPLOAD_SIZE"`
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("HOST", "0.0.0.0")
	viper.SetDefault("PORT", "8088")
	viper.SetDefault("GIN_MODE", "debug")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DATABASE_URL", "postgres://localhost:5432/course_qa?sslmode=disable")
	viper.SetDefault("EMBEDDING_BASE_URL", "https://api.openai.com/v1")
	viper.SetDefault("EMBEDDING_MODEL", "text-embedding-3-small")
	viper.SetDefault("EMBEDDING_DIMENSIONS", 1536)
	viper.SetDefault("LLM_BASE_URL", "https://api.openai.com/v1")
	viper.SetDefault("LLM_MODEL", "gpt-4o-mini")
	viper.SetDefault("RERANK_BASE_URL", "https://api.cohere.ai")
	viper.SetDefault("RERANK_MODEL", "rerank-english-v3.0")
	viper.SetDefault("CHUNK_SIZE", 1000)
	viper.SetDefault("CHUNK_OVERLAP", 200)
	viper.SetDefault("TOP_K_RETRIEVAL", 5)
	viper.SetDefault("TOP_N_RERANK", 5)
	viper.SetDefault("STORAGE_PATH", "./storage")
	viper.SetDefault("MAX_UPLOAD_SIZE", 50*1024*1024) // 50MB

	// Try to read .env file (optional)
	_ = viper.ReadInConfig()

	// Environment variables take precedence over the .env file
	for _, key := range []string{
		"HOST", "PORT", "GIN_MODE", "ENVIRONMENT", "DATABASE_URL", "REDIS_URL",
		"EMBEDDING_API_KEY", "EMBEDDING_BASE_URL", "EMBEDDING_MODEL", "EMBEDDING_DIMENSIONS",
		"LLM_API_KEY", "LLM_BASE_URL", "LLM_MODEL",
		"RERANK_API_KEY", "RERANK_BASE_URL", "RERANK_MODEL",
		"CHUNK_SIZE", "CHUNK_OVERLAP", "TOP_K_RETRIEVAL", "TOP_N_RERANK",
		"STORAGE_PATH", "MAX_UPLOAD_SIZE",
	} {
		if val := os.Getenv(key); val != "" {
			viper.Set(key, val)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return strings.ToLower(c.Environment) == "development"
}
