package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"eventail"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"eventail"`

	// Vector index artifacts (vectors.bin + docstore.json) live under this directory.
	IndexPath string `envconfig:"INDEX_PATH" default:"data/index"`

	EmbedServerURL string `envconfig:"EMBED_SERVER_URL" default:"http://localhost:8090"`
	EmbedDimension int    `envconfig:"EMBED_DIMENSION" default:"1024"`
	EmbedBatchSize int    `envconfig:"EMBED_BATCH_SIZE" default:"32"`

	GeminiAPIKey           string `envconfig:"GEMINI_API_KEY"`
	GeminiModel            string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	GenerateTimeoutSeconds int    `envconfig:"GENERATE_TIMEOUT_SECONDS" default:"30"`

	CatalogURL      string `envconfig:"CATALOG_URL" default:"https://api.openagenda.com/v2"`
	CatalogAPIKey   string `envconfig:"CATALOG_API_KEY"`
	CatalogPageSize int    `envconfig:"CATALOG_PAGE_SIZE" default:"100"`

	ChunkSize           int `envconfig:"CHUNK_SIZE" default:"1500"`
	ChunkOverlap        int `envconfig:"CHUNK_OVERLAP" default:"200"`
	MinDescriptionChars int `envconfig:"MIN_DESCRIPTION_CHARS" default:"100"`

	DefaultTopK int `envconfig:"DEFAULT_TOP_K" default:"5"`

	ServerPort    int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath  string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may be set in the shell instead; a missing .env is fine.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST is required", ErrInvalidConfig)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER is required", ErrInvalidConfig)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME is required", ErrInvalidConfig)
	}
	if c.IndexPath == "" {
		return fmt.Errorf("%w: INDEX_PATH is required", ErrInvalidConfig)
	}
	if c.EmbedDimension <= 0 {
		return fmt.Errorf("%w: EMBED_DIMENSION must be positive", ErrInvalidConfig)
	}
	if c.EmbedBatchSize <= 0 {
		return fmt.Errorf("%w: EMBED_BATCH_SIZE must be positive", ErrInvalidConfig)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: CHUNK_SIZE must be positive", ErrInvalidConfig)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP must be in [0, CHUNK_SIZE)", ErrInvalidConfig)
	}
	return nil
}
