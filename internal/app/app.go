package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"eventail/features/ask"
	"eventail/features/rebuild"
	"eventail/features/search"
	"eventail/features/stats"
	"eventail/internal/config"
	"eventail/internal/corpus"
	"eventail/internal/index"
	"eventail/internal/middleware"
	"eventail/internal/retrieval"
)

type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Ping(ctx context.Context) error
}

type App struct {
	Handler     http.Handler
	Coordinator *rebuild.Coordinator

	port int
}

func New(
	cfg *config.Config,
	db *sql.DB,
	handle *index.Handle,
	embedder Embedder,
	generator ask.Generator,
	catalog rebuild.Catalog,
) (*App, error) {
	repo := corpus.NewPostgresRepo(db)

	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}

	retrievalService := retrieval.NewService(embedder, handle, queryLogger)
	searchHandler := search.NewHandler(retrievalService, cfg.DefaultTopK)

	askService := ask.NewService(retrievalService, generator)
	askHandler := ask.NewHandler(askService, cfg.DefaultTopK)

	coordinator := rebuild.NewCoordinator(catalog, repo, embedder, handle, rebuild.Config{
		IndexPath:           cfg.IndexPath,
		ChunkSize:           cfg.ChunkSize,
		ChunkOverlap:        cfg.ChunkOverlap,
		MinDescriptionChars: cfg.MinDescriptionChars,
	})
	if err := coordinator.RestoreWatermark(context.Background()); err != nil {
		slog.Warn("failed to restore rebuild watermark", "error", err)
	}
	rebuildHandler := rebuild.NewHandler(coordinator)

	statsHandler := stats.NewHandler(handle, cfg.IndexPath)

	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()

	mux.Handle("POST /search", middleware.CorrelationID(enableCORS(searchHandler.Search)))
	mux.Handle("POST /ask", middleware.CorrelationID(enableCORS(askHandler.Ask)))
	mux.Handle("POST /rebuild", middleware.CorrelationID(enableCORS(rebuildHandler.Trigger)))
	mux.Handle("GET /rebuild/status", middleware.CorrelationID(enableCORS(rebuildHandler.GetStatus)))
	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := "ok"
		components := map[string]string{}

		if handle.Active() != nil {
			components["vector_index"] = "ok"
		} else {
			components["vector_index"] = "empty"
			status = "degraded"
		}

		if err := embedder.Ping(ctx); err != nil {
			components["embedding_provider"] = "unavailable"
			status = "degraded"
		} else {
			components["embedding_provider"] = "ok"
		}

		if generator != nil {
			components["generation_backend"] = "ok"
		} else {
			components["generation_backend"] = "unconfigured"
			status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{
			"status":     status,
			"components": components,
		}); err != nil {
			slog.ErrorContext(ctx, "failed to encode response", "error", err)
		}
	})

	return &App{
		Handler:     mux,
		Coordinator: coordinator,
		port:        cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
