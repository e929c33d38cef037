// Package app assembles a run from configuration: collectors, the embedding
// gateway, the store and the pipeline service.
package app

import (
	"context"
	"fmt"

	"lexrag/features/corpus"
	"lexrag/internal/adapter/embedding"
	"lexrag/internal/adapter/embedding/gemini"
	"lexrag/internal/adapter/embedding/openai"
	"lexrag/internal/collector"
	"lexrag/internal/collector/egov"
	"lexrag/internal/collector/kfs"
	"lexrag/internal/collector/webcrawl"
	"lexrag/internal/config"
)

type App struct {
	Service  *corpus.Service
	embedder embedding.Gateway
}

func New(ctx context.Context, cfg *config.Config, sources *config.Sources, deps *Dependencies) (*App, error) {
	collectors, err := BuildCollectors(sources)
	if err != nil {
		return nil, err
	}

	embedder, err := NewEmbedder(ctx, cfg, sources.Embedding)
	if err != nil {
		return nil, err
	}

	repo := corpus.NewPostgresRepo(deps.DB)
	svc := corpus.NewService(collectors, embedder, repo, corpus.Options{
		MaxChars:          sources.Chunking.MaxChars,
		OverlapChars:      sources.Chunking.OverlapChars,
		MinContentChars:   sources.MinContentChars,
		BatchSize:         sources.Embedding.BatchSize,
		DiffEnabled:       sources.Diff.Enabled,
		DeactivateMissing: sources.Diff.DeactivateMissing,
	})

	return &App{Service: svc, embedder: embedder}, nil
}

func (a *App) Close() error {
	return a.embedder.Close()
}

// BuildCollectors instantiates every enabled collector in a fixed order:
// egov, then the crawlers as listed, then kfs. The order shows in logs and
// makes runs reproducible.
func BuildCollectors(sources *config.Sources) ([]collector.Collector, error) {
	var collectors []collector.Collector

	if sources.Egov.Enabled {
		collectors = append(collectors, egov.New(sources.Egov))
	}

	for _, c := range sources.Crawlers {
		if !c.Enabled {
			continue
		}
		cr, err := webcrawl.New(c)
		if err != nil {
			return nil, err
		}
		collectors = append(collectors, cr)
	}

	if sources.KFS.Enabled {
		collectors = append(collectors, kfs.New(sources.KFS))
	}

	return collectors, nil
}

// NewEmbedder picks the provider configured in the sources file. Keys come
// from the environment, never from the sources file.
func NewEmbedder(ctx context.Context, cfg *config.Config, emb config.EmbeddingConfig) (embedding.Gateway, error) {
	switch emb.Provider {
	case "gemini":
		return gemini.NewEmbedder(ctx, cfg.GeminiAPIKey, emb.Model, emb.Normalize)
	case "openai":
		return openai.NewEmbedder(openai.Config{
			APIKey:    cfg.OpenAIAPIKey,
			Model:     emb.Model,
			Normalize: emb.Normalize,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", emb.Provider)
	}
}
