package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"eventail/internal/adapter/e5"
	"eventail/internal/adapter/gemini"
	"eventail/internal/adapter/openagenda"
	"eventail/internal/config"
	"eventail/internal/index"
)

type Dependencies struct {
	DB        *sql.DB
	Handle    *index.Handle
	Embedder  *e5.Client
	Generator *gemini.Generator
	Catalog   *openagenda.Client
}

func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		slog.Warn("failed to ping db, retrying...", "attempt", i+1)
		time.Sleep(retryDelay)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver error: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance error: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, fmt.Errorf("migration up error: %w", err)
	}

	// Index artifacts may not exist yet on a fresh deployment; the
	// service then starts degraded until the first rebuild.
	handle := index.NewHandle(nil)
	idx, err := index.Load(cfg.IndexPath)
	switch {
	case err == nil:
		handle.Swap(idx)
		slog.Info("loaded vector index", "path", cfg.IndexPath,
			"count", idx.Stats().Count, "dimension", idx.Stats().Dimension)
	case errors.Is(err, index.ErrNotFound):
		slog.Warn("no vector index on disk, starting empty", "path", cfg.IndexPath)
	default:
		return nil, fmt.Errorf("loading index: %w", err)
	}

	embedder := e5.NewClient(cfg.EmbedServerURL, cfg.EmbedDimension, cfg.EmbedBatchSize)

	var generator *gemini.Generator
	if cfg.GeminiAPIKey != "" {
		timeout := time.Duration(cfg.GenerateTimeoutSeconds) * time.Second
		generator, err = gemini.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, timeout)
		if err != nil {
			return nil, fmt.Errorf("gemini client error: %w", err)
		}
	} else {
		slog.Warn("GEMINI_API_KEY not set, /ask will be unavailable")
	}

	catalog := openagenda.NewClient(cfg.CatalogURL, cfg.CatalogAPIKey, cfg.CatalogPageSize)

	return &Dependencies{
		DB:        db,
		Handle:    handle,
		Embedder:  embedder,
		Generator: generator,
		Catalog:   catalog,
	}, nil
}
