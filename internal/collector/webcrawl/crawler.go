// Package webcrawl is a generic breadth-first site crawler. One Crawler
// instance covers one configured crawl: seeds, URL filters and page budget.
package webcrawl

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"lexrag/internal/collector"
	"lexrag/internal/config"
)

var _ collector.Collector = (*Crawler)(nil)

const userAgent = "lexrag/0.1"

// binaryExt matches links that are never HTML; they are not even fetched.
var binaryExt = regexp.MustCompile(`(?i)\.(pdf|zip|xls|xlsx|doc|docx)$`)

type Crawler struct {
	cfg     config.CrawlerSource
	http    *http.Client
	limiter *rate.Limiter

	// Crawls stay on the host of the first seed.
	host string

	allowedPrefixes []string
	excludeURL      []*regexp.Regexp
	skipSaveTitle   []*regexp.Regexp
	skipSaveURL     []*regexp.Regexp
}

type Option func(*Crawler)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Crawler) { c.http = h }
}

func WithRateLimit(l *rate.Limiter) Option {
	return func(c *Crawler) { c.limiter = l }
}

func New(cfg config.CrawlerSource, opts ...Option) (*Crawler, error) {
	if len(cfg.Seeds) == 0 {
		return nil, fmt.Errorf("crawler %s: at least one seed is required", cfg.Name)
	}

	first, err := url.Parse(cfg.Seeds[0])
	if err != nil || first.Host == "" {
		return nil, fmt.Errorf("crawler %s: invalid seed %q", cfg.Name, cfg.Seeds[0])
	}

	c := &Crawler{
		cfg:             cfg,
		http:            &http.Client{Timeout: 30 * time.Second},
		limiter:         rate.NewLimiter(rate.Every(time.Duration(cfg.DelaySeconds*float64(time.Second))), 1),
		host:            first.Host,
		allowedPrefixes: cfg.AllowedPrefixes,
	}
	if len(c.allowedPrefixes) == 0 {
		c.allowedPrefixes = []string{first.Scheme + "://" + first.Host + "/"}
	}

	if c.excludeURL, err = compilePatterns(cfg.ExcludeURLRegex); err != nil {
		return nil, fmt.Errorf("crawler %s: exclude_url_regex: %w", cfg.Name, err)
	}
	if c.skipSaveTitle, err = compilePatterns(cfg.SkipSaveTitleRegex); err != nil {
		return nil, fmt.Errorf("crawler %s: skip_save_title_regex: %w", cfg.Name, err)
	}
	if c.skipSaveURL, err = compilePatterns(cfg.SkipSaveURLRegex); err != nil {
		return nil, fmt.Errorf("crawler %s: skip_save_url_regex: %w", cfg.Name, err)
	}

	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Crawler) Name() string { return c.cfg.Name }

// Collect runs the BFS until the queue drains or max_pages pages were
// fetched. Fetch errors on individual pages are skipped; the crawl only fails
// when the context is cancelled.
func (c *Crawler) Collect(ctx context.Context) ([]collector.RawDocument, error) {
	seen := map[string]bool{}
	var queue []string
	var docs []collector.RawDocument

	for _, s := range c.cfg.Seeds {
		if n := c.normalizeURL(s, nil); n != "" && c.isAllowed(n) {
			queue = append(queue, n)
		}
	}

	for len(queue) > 0 && len(seen) < c.cfg.MaxPages {
		u := queue[0]
		queue = queue[1:]

		if seen[u] || matchAny(c.excludeURL, u) {
			continue
		}
		seen[u] = true

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		doc, ok := c.fetchPage(ctx, u)
		if !ok {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			continue
		}

		links := c.extractLinks(doc, u)

		title, text := extract(doc)
		if c.shouldSave(title, u) {
			docs = append(docs, collector.RawDocument{
				Source:  c.cfg.Name,
				Title:   title,
				URL:     u,
				Content: text,
				Extra:   c.cfg.Extra,
			})
		}

		for _, l := range links {
			if !seen[l] {
				queue = append(queue, l)
			}
		}
	}

	slog.InfoContext(ctx, "crawl finished",
		"collector", c.Name(), "pages", len(seen), "docs", len(docs))
	return docs, nil
}

func (c *Crawler) fetchPage(ctx context.Context, u string) (*goquery.Document, bool) {
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
		slog.DebugContext(ctx, "page skipped", "collector", c.Name(), "url", u, "status", resp.StatusCode)
		return nil, false
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		return nil, false
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		slog.WarnContext(ctx, "page parse failed", "collector", c.Name(), "url", u, "error", err)
		return nil, false
	}
	return doc, true
}

// extractLinks must run before extract: extract prunes the tree and would
// drop links living in navigation blocks.
func (c *Crawler) extractLinks(doc *goquery.Document, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		n := c.normalizeURL(href, base)
		if n == "" || !c.isAllowed(n) {
			return
		}
		if matchAny(c.excludeURL, n) || binaryExt.MatchString(n) {
			return
		}
		links = append(links, n)
	})
	return links
}

// normalizeURL resolves href against base, rejects foreign hosts and non-HTTP
// schemes, and strips the fragment.
func (c *Crawler) normalizeURL(href string, base *url.URL) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" || u.Host != c.host {
		return ""
	}
	u.Fragment = ""
	return u.String()
}

func (c *Crawler) isAllowed(u string) bool {
	for _, p := range c.allowedPrefixes {
		if strings.HasPrefix(u, p) {
			return true
		}
	}
	return false
}

func (c *Crawler) shouldSave(title, u string) bool {
	if title != "" && matchAny(c.skipSaveTitle, title) {
		return false
	}
	return !matchAny(c.skipSaveURL, u)
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	var out []*regexp.Regexp
	for _, p := range patterns {
		if p == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
