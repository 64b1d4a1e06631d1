package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	ChatLLM  LLMConfig      `yaml:"chat_llm"`
	Reranker RerankerConfig `yaml:"reranker"`
	Parser   ParserConfig   `yaml:"parser"`
	RAG      RAGConfig      `yaml:"rag"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"` // openai or ollama
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type RerankerConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BaseURL        string `yaml:"base_url"`
	Key            string `yaml:"key"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type ParserConfig struct {
	DoclingURL     string `yaml:"docling_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`    // characters
	ChunkOverlap int `yaml:"chunk_overlap"` // characters
	TopK         int `yaml:"top_k"`
	MaxSources   int `yaml:"max_sources"`
	HistoryLimit int `yaml:"history_limit"`
	// Confidence thresholds. Vector similarity and reranker relevance use
	// different scales, so each score type gets its own pair.
	VectorHigh float64 `yaml:"vector_high"`
	VectorLow  float64 `yaml:"vector_low"`
	RerankHigh float64 `yaml:"rerank_high"`
	RerankLow  float64 `yaml:"rerank_low"`
}

const (
	defaultChunkSize    = 1000
	defaultTopK         = 5
	defaultMaxSources   = 3
	defaultHistoryLimit = 10
	defaultVectorHigh   = 0.75
	defaultVectorLow    = 0.50
	defaultRerankHigh   = 0.30
	defaultRerankLow    = 0.10
)

func LoadConfig(path string) (*Config, error) {
	// .env is optional, real env vars win over it
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overlayEnv(&cfg)
	cfg.RAG.ApplyDefaults()
	return &cfg, nil
}

// overlayEnv lets secrets stay out of the yaml file.
func overlayEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("EMBED_LLM_KEY"); v != "" {
		cfg.EmbedLLM.Key = v
	}
	if v := os.Getenv("CHAT_LLM_KEY"); v != "" {
		cfg.ChatLLM.Key = v
	}
	if v := os.Getenv("RERANKER_KEY"); v != "" {
		cfg.Reranker.Key = v
	}
}

// ApplyDefaults fills in zero-valued tunables. The vector thresholds
// default to the 0.75/0.50 calibration.
func (r *RAGConfig) ApplyDefaults() {
	if r.ChunkSize <= 0 {
		r.ChunkSize = defaultChunkSize
	}
	if r.ChunkOverlap <= 0 || r.ChunkOverlap >= r.ChunkSize {
		r.ChunkOverlap = r.ChunkSize / 5
	}
	if r.TopK <= 0 {
		r.TopK = defaultTopK
	}
	if r.MaxSources <= 0 {
		r.MaxSources = defaultMaxSources
	}
	if r.HistoryLimit <= 0 {
		r.HistoryLimit = defaultHistoryLimit
	}
	if r.VectorHigh == 0 {
		r.VectorHigh = defaultVectorHigh
	}
	if r.VectorLow == 0 {
		r.VectorLow = defaultVectorLow
	}
	if r.RerankHigh == 0 {
		r.RerankHigh = defaultRerankHigh
	}
	if r.RerankLow == 0 {
		r.RerankLow = defaultRerankLow
	}
}
