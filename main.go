package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"lexrag/internal/app"
	"lexrag/internal/config"
	"lexrag/internal/logger"
	"lexrag/internal/runctx"
)

func main() {
	// Structured logger; every line of a run carries the run_id.
	handler := logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(slog.New(handler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = runctx.WithRunID(ctx, runctx.NewRunID())

	if err := run(ctx); err != nil {
		slog.ErrorContext(ctx, "run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		return err
	}

	deps, err := app.Bootstrap(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()
	slog.InfoContext(ctx, "bootstrap complete", "sources_path", cfg.SourcesPath)

	a, err := app.New(ctx, cfg, sources, deps)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.Service.Run(ctx)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "ingestion run finished",
		"fetched", stats.Fetched,
		"normalized", stats.Normalized,
		"changed", stats.Changed,
		"unchanged", stats.Unchanged,
		"embed_failed", stats.EmbedFailed,
		"documents_synced", stats.Synced,
		"chunks_written", stats.ChunksWritten,
		"deactivated", stats.Deactivated)
	return nil
}
