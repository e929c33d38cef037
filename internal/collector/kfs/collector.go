// Package kfs scrapes the published tax-tribunal rulings. The crawl runs in
// three phases: the start page links to per-volume case lists, the lists link
// to individual cases, and each case page is fetched and filtered through
// heuristics that drop index-like pages.
package kfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"lexrag/internal/collector"
	"lexrag/internal/config"
)

var _ collector.Collector = (*Collector)(nil)

const (
	userAgent    = "lexrag/0.1"
	maxTitleLen  = 120
	volumeAnchor = "裁決事例集"
	caseAnchor   = "裁決事例"
	summaryWord  = "要旨"
)

const chromeSelector = "nav, header, footer, .header, .footer, .breadcrumb, " +
	"script, style, .btn-area, .page-top, .gnav, .menu, .global-nav"

type Collector struct {
	cfg     config.KFSSource
	http    *http.Client
	limiter *rate.Limiter
}

type Option func(*Collector)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Collector) { c.http = h }
}

func WithRateLimit(l *rate.Limiter) Option {
	return func(c *Collector) { c.limiter = l }
}

func New(cfg config.KFSSource, opts ...Option) *Collector {
	c := &Collector{
		cfg:     cfg,
		http:    &http.Client{Timeout: 25 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Duration(cfg.DelaySeconds*float64(time.Second))), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Collector) Name() string { return "kfs" }

func (c *Collector) Collect(ctx context.Context) ([]collector.RawDocument, error) {
	listPages, err := c.collectListPages(ctx)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "volume lists found", "collector", c.Name(), "lists", len(listPages))

	caseURLs, err := c.collectCaseURLs(ctx, listPages)
	if err != nil {
		return nil, err
	}
	if c.cfg.MaxCases > 0 && len(caseURLs) > c.cfg.MaxCases {
		caseURLs = caseURLs[:c.cfg.MaxCases]
	}
	slog.InfoContext(ctx, "case pages found", "collector", c.Name(), "cases", len(caseURLs))

	keywords := c.cfg.RequireAnyKeywords
	if len(keywords) == 0 {
		keywords = defaultCaseKeywords
	}

	var docs []collector.RawDocument
	for _, u := range caseURLs {
		doc, ok := c.fetchPage(ctx, u)
		if !ok {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			continue
		}

		text, title := extractCase(doc, u)
		if !passesCaseHeuristics(u, title, text, c.cfg.MinContentChars, keywords) {
			slog.DebugContext(ctx, "case page rejected",
				"collector", c.Name(), "url", u, "chars", utf8.RuneCountInString(text))
			continue
		}

		docs = append(docs, collector.RawDocument{
			Source:  c.Name(),
			Title:   title,
			URL:     u,
			Content: text,
			Extra:   map[string]string{"kfs_kind": "saiketsu"},
		})
	}

	return docs, nil
}

// collectListPages fails hard: without the start page there is nothing to
// crawl. The result is sorted newest-volume-first (URLs sort that way).
func (c *Collector) collectListPages(ctx context.Context) ([]string, error) {
	doc, ok := c.fetchPage(ctx, c.cfg.StartURL)
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("kfs: start page unavailable: %s", c.cfg.StartURL)
	}

	seen := map[string]bool{}
	var pages []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if !strings.Contains(strings.TrimSpace(s.Text()), volumeAnchor) {
			return
		}
		href, _ := s.Attr("href")
		u := resolveURL(c.cfg.StartURL, href)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		pages = append(pages, u)
	})

	sort.Sort(sort.Reverse(sort.StringSlice(pages)))
	return pages, nil
}

// collectCaseURLs scans every volume list; a list that fails to fetch is
// skipped. Order is preserved and duplicates across lists are dropped.
func (c *Collector) collectCaseURLs(ctx context.Context, listPages []string) ([]string, error) {
	seen := map[string]bool{}
	var caseURLs []string

	for _, listURL := range listPages {
		doc, ok := c.fetchPage(ctx, listURL)
		if !ok {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			continue
		}

		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if !strings.Contains(text, caseAnchor) {
				return
			}
			if !c.cfg.IncludeSummaries && strings.Contains(text, summaryWord) {
				return
			}

			href, _ := s.Attr("href")
			u := resolveURL(listURL, href)
			if u == "" {
				return
			}
			if !strings.HasSuffix(u, ".html") && !strings.HasSuffix(u, ".htm") {
				return
			}
			if isExcludedURL(u) || seen[u] {
				return
			}
			seen[u] = true
			caseURLs = append(caseURLs, u)
		})
	}

	return caseURLs, nil
}

// fetchPage downloads a page, decodes it through the charset chain and parses
// it. Failures are logged and reported as not-ok; the caller decides whether
// that is fatal.
func (c *Collector) fetchPage(ctx context.Context, u string) (*goquery.Document, bool) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		slog.WarnContext(ctx, "page fetch failed", "collector", c.Name(), "url", u, "error", err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.WarnContext(ctx, "page skipped", "collector", c.Name(), "url", u, "status", resp.StatusCode)
		return nil, false
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false
	}

	decoded := decodeHTML(raw, resp.Header.Get("Content-Type"))
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(decoded))
	if err != nil {
		slog.WarnContext(ctx, "page parse failed", "collector", c.Name(), "url", u, "error", err)
		return nil, false
	}
	return doc, true
}

// extractCase returns (text, title) of a case page. The content area is the
// #contents div when present, then <main>, then <body>.
func extractCase(doc *goquery.Document, pageURL string) (string, string) {
	area := doc.Find("div#contents").First()
	if area.Length() == 0 {
		area = doc.Find("main").First()
	}
	if area.Length() == 0 {
		area = doc.Find("body").First()
	}
	if area.Length() == 0 {
		return "", ""
	}

	area.Find(chromeSelector).Remove()

	var sb strings.Builder
	for _, n := range area.Nodes {
		collectText(n, &sb)
	}
	text := strings.TrimSpace(sb.String())

	fallback := pageURL
	if text != "" {
		fallback, _, _ = strings.Cut(text, "\n")
	}
	return text, pickTitle(doc, fallback)
}

func pickTitle(doc *goquery.Document, fallback string) string {
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return truncateRunes(h1, maxTitleLen)
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return truncateRunes(t, maxTitleLen)
	}
	return truncateRunes(fallback, maxTitleLen)
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		if s := strings.TrimSpace(n.Data); s != "" {
			sb.WriteString(s)
			sb.WriteByte('\n')
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func resolveURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	h, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	u := b.ResolveReference(h)
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
