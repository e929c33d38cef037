package corpus_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"lexrag/features/corpus"
	"lexrag/internal/collector"
)

// Mocks

type MockEmbedder struct{ mock.Mock }

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

type MockRepo struct{ mock.Mock }

func (m *MockRepo) FetchContentHashes(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockRepo) SyncBatch(ctx context.Context, docs []corpus.Document) error {
	args := m.Called(ctx, docs)
	return args.Error(0)
}

func (m *MockRepo) DeactivateMissing(ctx context.Context, source string, seenIDs []string) (int64, error) {
	args := m.Called(ctx, source, seenIDs)
	return args.Get(0).(int64), args.Error(1)
}

// StaticCollector returns a fixed document list, or an error.
type StaticCollector struct {
	name string
	docs []collector.RawDocument
	err  error
}

func (c *StaticCollector) Name() string { return c.name }

func (c *StaticCollector) Collect(ctx context.Context) ([]collector.RawDocument, error) {
	return c.docs, c.err
}

// emptyVectorEmbedder answers every batch with the right number of vectors,
// all of them empty.
type emptyVectorEmbedder struct{}

func (e *emptyVectorEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

// identityEmbedder returns a fixed-size vector per text, no failures.
type identityEmbedder struct{ dim int }

func (e *identityEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, e.dim)
		v[0] = float32(i + 1)
		out[i] = v
	}
	return out, nil
}
