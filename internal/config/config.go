package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port int `json:"port"`
	// CORSOrigins is the browser origin allowlist; empty allows any.
	CORSOrigins []string         `json:"cors_origins"`
	LogConfig   logger.LogConfig `json:"log_config"`
	ES          ESConfig         `json:"elasticsearch"`
	AI          AIConfig         `json:"ai"`
	Cache       CacheConfig      `json:"cache"`
	Schedule    ScheduleConfig   `json:"schedule"`
}

type ESConfig struct {
	Addresses             []string `json:"addresses"`
	Username              string   `json:"username"`
	Password              string   `json:"password"`
	APIKey                string   `json:"api_key"`
	TimeoutSeconds        int      `json:"timeout_seconds"`
	MaxResultDocs         int      `json:"max_result_docs"`
	SchemaCacheTTLMinutes int      `json:"schema_cache_ttl_minutes"`
}

type AIConfig struct {
	Provider      string      `json:"provider"`
	Model         string      `json:"model"`
	Data          interface{} `json:"data"`
	EmbedProvider string      `json:"embed_provider"`
	EmbedModel    string      `json:"embed_model"`
	EmbedData     interface{} `json:"embed_data"`
	Timeout       int         `json:"timeout"`
	MaxInputChars int         `json:"max_input_chars"`
	// Fallbacks are tried in order when the primary generator fails.
	// Generation only: the embedding model is fixed, cached embeddings
	// from different models are not comparable.
	Fallbacks []AIFallbackConfig `json:"fallbacks"`
}

type AIFallbackConfig struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type CacheConfig struct {
	// Backend selects the vector store: memory (per-process) or postgres
	// (durable, pgvector).
	Backend  string         `json:"backend"`
	Postgres PostgresConfig `json:"postgres"`
	// Threshold is the cosine similarity a stored question must reach to
	// count as a hit. Raising it trades cache misses (more generation
	// calls) for precision; lowering it risks reusing a query that does
	// not match the question.
	Threshold  float32 `json:"threshold"`
	MaxAgeDays int     `json:"max_age_days"`
}

type PostgresConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type ScheduleConfig struct {
	CacheCleanup string `json:"cache_cleanup"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if len(cfg.ES.Addresses) == 0 {
		return nil, fmt.Errorf("elasticsearch.addresses is required")
	}
	if cfg.ES.TimeoutSeconds == 0 {
		cfg.ES.TimeoutSeconds = 30
	}
	if cfg.ES.MaxResultDocs == 0 {
		cfg.ES.MaxResultDocs = 100
	}
	if cfg.ES.SchemaCacheTTLMinutes == 0 {
		cfg.ES.SchemaCacheTTLMinutes = 10
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.Model == "" {
		return nil, fmt.Errorf("ai.model is required")
	}
	if cfg.AI.EmbedProvider == "" {
		cfg.AI.EmbedProvider = cfg.AI.Provider
	}
	if cfg.AI.EmbedData == nil {
		cfg.AI.EmbedData = cfg.AI.Data
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	for i, fb := range cfg.AI.Fallbacks {
		if fb.Provider == "" || fb.Model == "" {
			return nil, fmt.Errorf("ai.fallbacks[%d]: provider and model are required", i)
		}
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 60
	}
	if cfg.AI.MaxInputChars == 0 {
		cfg.AI.MaxInputChars = 8000
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	switch cfg.Cache.Backend {
	case "memory":
	case "postgres":
		pg := cfg.Cache.Postgres
		if pg.DSN == "" && (pg.Host == "" || pg.DBName == "") {
			return nil, fmt.Errorf("cache.postgres dsn or host/dbname are required for postgres backend")
		}
	default:
		return nil, fmt.Errorf("cache.backend must be memory or postgres")
	}
	if cfg.Cache.Threshold == 0 {
		cfg.Cache.Threshold = 0.90
	}
	if cfg.Cache.Threshold < 0 || cfg.Cache.Threshold > 1 {
		return nil, fmt.Errorf("cache.threshold must be within (0, 1]")
	}
	if cfg.Cache.MaxAgeDays == 0 {
		cfg.Cache.MaxAgeDays = 30
	}
	if cfg.Schedule.CacheCleanup == "" {
		cfg.Schedule.CacheCleanup = "0 3 * * *"
	}
	return &cfg, nil
}
