package egov

import (
	"context"
	"log/slog"

	"lexrag/internal/collector"
	"lexrag/internal/config"
)

var _ collector.Collector = (*Collector)(nil)

const lawURLBase = "https://laws.e-gov.go.jp/law/"

// Collector lists statutes by category, keeps the ones the matcher accepts,
// and fetches their full text.
type Collector struct {
	client  *Client
	matcher *Matcher
	cfg     config.EgovSource
}

func New(cfg config.EgovSource, opts ...ClientOption) *Collector {
	return &Collector{
		client:  NewClient(opts...),
		matcher: NewMatcher(cfg),
		cfg:     cfg,
	}
}

func (c *Collector) Name() string { return "egov" }

// Collect fails when the law list itself cannot be fetched; per-law fetch
// failures only drop that law.
func (c *Collector) Collect(ctx context.Context) ([]collector.RawDocument, error) {
	laws, err := c.client.FetchLawList(ctx, c.cfg.Category)
	if err != nil {
		return nil, err
	}

	selected := c.matcher.Select(laws, c.cfg.MaxLaws)
	slog.InfoContext(ctx, "law list filtered",
		"collector", c.Name(), "listed", len(laws), "selected", len(selected))

	var docs []collector.RawDocument
	for _, law := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		title, text, err := c.client.FetchLawText(ctx, law.ID)
		if err != nil {
			slog.WarnContext(ctx, "law fetch failed",
				"collector", c.Name(), "law_id", law.ID, "law_name", law.Name, "error", err)
			continue
		}
		if text == "" {
			slog.WarnContext(ctx, "law has no text",
				"collector", c.Name(), "law_id", law.ID, "law_name", law.Name)
			continue
		}
		if title == "" {
			title = law.Name
		}

		docs = append(docs, collector.RawDocument{
			Source:  c.Name(),
			Title:   title,
			URL:     lawURLBase + law.ID,
			Content: text,
			Extra:   map[string]string{"law_id": law.ID, "law_no": law.No},
		})
	}

	return docs, nil
}
