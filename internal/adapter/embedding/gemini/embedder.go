package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"lexrag/internal/adapter/embedding"
)

var _ embedding.Gateway = (*Embedder)(nil)

type Embedder struct {
	client    *genai.Client
	model     string
	normalize bool
}

func NewEmbedder(ctx context.Context, apiKey, model string, normalize bool) (*Embedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	return &Embedder{client: client, model: model, normalize: normalize}, nil
}

// EmbedBatch embeds all texts in one batched call. The API preserves request
// order, so vectors line up with the input.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	slog.DebugContext(ctx, "embedding batch", "model", e.model, "texts", len(texts))

	em := e.client.EmbeddingModel(e.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		slog.ErrorContext(ctx, "embedding batch failed", "model", e.model, "error", err)
		return nil, err
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini: got %d embeddings for %d texts", len(res.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, emb := range res.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("gemini: empty embedding at index %d", i)
		}
		v := emb.Values
		if e.normalize {
			v = embedding.NormalizeL2(v)
		}
		out[i] = v
	}
	return out, nil
}

func (e *Embedder) Close() error {
	return e.client.Close()
}
