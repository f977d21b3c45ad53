package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"eventail/features/ask"
	"eventail/internal/app"
	"eventail/internal/config"
	"eventail/internal/logger"
)

func main() {
	handler := logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.DB.Close()

	// A typed nil must not become a non-nil interface value.
	var generator ask.Generator
	if deps.Generator != nil {
		generator = deps.Generator
		defer deps.Generator.Close()
	}

	a, err := app.New(cfg, deps.DB, deps.Handle, deps.Embedder, generator, deps.Catalog)
	if err != nil {
		slog.Error("failed to build app", "error", err)
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
