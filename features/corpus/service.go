package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"lexrag/internal/collector"
)

// Embedder is the order-preserving batch contract over the embedding
// capability: output[i] embeds input[i], same length as the input. A batch
// fails as a whole; per-item failure is not modeled.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Repo is the persistent side of the synchronizer.
type Repo interface {
	FetchContentHashes(ctx context.Context) (map[string]string, error)
	SyncBatch(ctx context.Context, docs []Document) error
	DeactivateMissing(ctx context.Context, source string, seenIDs []string) (int64, error)
}

// Options carries the run parameters of the pipeline.
type Options struct {
	MaxChars        int
	OverlapChars    int
	MinContentChars int
	BatchSize       int

	// DiffEnabled gates change detection. When off every fetched document
	// is treated as changed and rewritten.
	DiffEnabled bool

	// DeactivateMissing flips is_active off for documents of an enabled
	// source that did not appear in this run.
	DeactivateMissing bool

	// CollectorConcurrency bounds the parallel collector fan-out.
	CollectorConcurrency int
}

// RunStats are the aggregate counts reported at the end of a run.
type RunStats struct {
	Fetched       int
	Normalized    int
	Unchanged     int
	Changed       int
	EmbedFailed   int
	Synced        int
	ChunksWritten int
	Deactivated   int64
}

// Service drives one ingestion run: collect, normalize, diff, chunk, embed,
// sync.
type Service struct {
	collectors []collector.Collector
	embedder   Embedder
	repo       Repo
	opts       Options
}

func NewService(collectors []collector.Collector, embedder Embedder, repo Repo, opts Options) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.CollectorConcurrency <= 0 {
		opts.CollectorConcurrency = 4
	}
	return &Service{collectors: collectors, embedder: embedder, repo: repo, opts: opts}
}

// Run executes the pipeline once. Collector and embedding failures are
// absorbed per source respectively per batch; only store-level failures
// abort the run.
func (s *Service) Run(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{}

	raws, collected := s.collect(ctx)
	stats.Fetched = len(raws)

	docs := Normalize(raws, s.opts.MinContentChars)
	stats.Normalized = len(docs)

	stored := map[string]string{}
	if s.opts.DiffEnabled {
		var err error
		stored, err = s.repo.FetchContentHashes(ctx)
		if err != nil {
			return stats, fmt.Errorf("fetch stored hashes: %w", err)
		}
	}

	work, unchanged := Partition(docs, stored)
	stats.Unchanged = len(unchanged)
	stats.Changed = len(work)

	slog.InfoContext(ctx, "change detection done",
		"fetched", stats.Fetched, "normalized", stats.Normalized,
		"changed", stats.Changed, "unchanged", stats.Unchanged)

	for i := range work {
		BuildChunks(&work[i], s.opts.MaxChars, s.opts.OverlapChars)
	}

	failed := s.embed(ctx, work)
	stats.EmbedFailed = len(failed)

	writable := make([]Document, 0, len(work))
	for _, d := range work {
		if failed[d.ID] {
			continue
		}
		// An embedder that answers the batch but leaves a vector empty
		// would make the store reject the whole transaction; skip the
		// document instead.
		if hasEmptyEmbedding(d) {
			stats.EmbedFailed++
			slog.WarnContext(ctx, "document has an empty embedding, skipping",
				"doc_id", d.ID, "url", d.URL)
			continue
		}
		writable = append(writable, d)
	}

	if err := s.repo.SyncBatch(ctx, writable); err != nil {
		return stats, fmt.Errorf("sync work set: %w", err)
	}
	stats.Synced = len(writable)
	for _, d := range writable {
		stats.ChunksWritten += len(d.Chunks)
	}

	if s.opts.DeactivateMissing {
		n, err := s.deactivate(ctx, docs, collected)
		if err != nil {
			return stats, err
		}
		stats.Deactivated = n
	}

	slog.InfoContext(ctx, "run complete",
		"documents_synced", stats.Synced, "chunks_written", stats.ChunksWritten,
		"embed_failed", stats.EmbedFailed, "deactivated", stats.Deactivated)
	return stats, nil
}

// collect fans out over the collectors with bounded concurrency. A failing
// collector is logged and contributes nothing; it never aborts the run. The
// returned set names the collectors that succeeded: an empty result from a
// succeeded collector is a real "nothing found", an absent one is a failure.
func (s *Service) collect(ctx context.Context) ([]collector.RawDocument, map[string]bool) {
	var mu sync.Mutex
	results := make(map[string][]collector.RawDocument)
	succeeded := make(map[string]bool)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.CollectorConcurrency)

	for _, c := range s.collectors {
		g.Go(func() error {
			docs, err := c.Collect(gctx)
			if err != nil {
				slog.WarnContext(gctx, "collector failed, continuing without it",
					"collector", c.Name(), "error", err)
				return nil
			}
			mu.Lock()
			results[c.Name()] = docs
			succeeded[c.Name()] = true
			mu.Unlock()
			slog.InfoContext(gctx, "collector finished", "collector", c.Name(), "documents", len(docs))
			return nil
		})
	}
	_ = g.Wait()

	// Assemble in declared collector order so a run is deterministic for
	// identical collector output.
	var raws []collector.RawDocument
	for _, c := range s.collectors {
		raws = append(raws, results[c.Name()]...)
	}
	return raws, succeeded
}

// embed fills in chunk embeddings batch by batch across document boundaries.
// When a batch fails, every document owning a chunk in that batch is excluded
// from this run's write set; its previously stored state stays intact.
func (s *Service) embed(ctx context.Context, work []Document) map[string]bool {
	type ref struct {
		doc   int
		chunk int
	}
	var texts []string
	var refs []ref
	for di := range work {
		for ci := range work[di].Chunks {
			texts = append(texts, work[di].Chunks[ci].Content)
			refs = append(refs, ref{doc: di, chunk: ci})
		}
	}

	failed := map[string]bool{}
	for start := 0; start < len(texts); start += s.opts.BatchSize {
		end := start + s.opts.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts[start:end])
		if err == nil && len(vectors) != end-start {
			err = fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), end-start)
		}
		if err != nil {
			for _, r := range refs[start:end] {
				failed[work[r.doc].ID] = true
			}
			slog.WarnContext(ctx, "embedding batch failed, skipping affected documents",
				"batch_start", start, "batch_size", end-start, "error", err)
			continue
		}
		for i, r := range refs[start:end] {
			work[r.doc].Chunks[r.chunk].Embedding = vectors[i]
		}
	}
	return failed
}

func hasEmptyEmbedding(d Document) bool {
	for _, c := range d.Chunks {
		if len(c.Embedding) == 0 {
			return true
		}
	}
	return false
}

// deactivate flips off documents of each collected source that were not seen
// this run. Sources without a collector in this run, and sources whose
// collector failed, are left alone: a transient fetch failure must never
// deactivate a source's stored corpus.
func (s *Service) deactivate(ctx context.Context, docs []Document, collected map[string]bool) (int64, error) {
	seen := map[string][]string{}
	for _, d := range docs {
		seen[d.Source] = append(seen[d.Source], d.ID)
	}

	var total int64
	for _, c := range s.collectors {
		name := c.Name()
		if !collected[name] {
			slog.WarnContext(ctx, "skipping deactivation sweep, collector did not succeed",
				"collector", name)
			continue
		}
		n, err := s.repo.DeactivateMissing(ctx, name, seen[name])
		if err != nil {
			return total, fmt.Errorf("deactivate missing documents for %s: %w", name, err)
		}
		total += n
	}
	return total, nil
}
