package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Sources is the declarative run configuration: which collectors are enabled,
// their crawl limits, and the chunking/embedding/diff parameters of the run.
type Sources struct {
	Egov     EgovSource      `yaml:"egov"`
	Crawlers []CrawlerSource `yaml:"crawlers"`
	KFS      KFSSource       `yaml:"kfs"`

	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Diff      DiffConfig      `yaml:"diff"`

	// Documents whose normalized content is shorter than this are dropped
	// before they ever reach the store.
	MinContentChars int `yaml:"min_content_chars"`
}

// EgovSource configures the statute-API collector.
type EgovSource struct {
	Enabled  bool     `yaml:"enabled"`
	Keywords []string `yaml:"keywords"`
	MaxLaws  int      `yaml:"max_laws"`
	Category int      `yaml:"category"`

	// Title matching rules, evaluated in order: exact allow, then prefix
	// allow with suffix includes and phrase excludes.
	ExactAllow      []string `yaml:"exact_allow"`
	PrefixAllow     []string `yaml:"prefix_allow"`
	IncludeSuffixes []string `yaml:"include_suffixes"`
	ExcludePhrases  []string `yaml:"exclude_phrases"`
}

// CrawlerSource configures one generic BFS web crawl. Several crawls may
// target the same host with different seeds and filters.
type CrawlerSource struct {
	Name               string            `yaml:"name"`
	Enabled            bool              `yaml:"enabled"`
	Seeds              []string          `yaml:"seeds"`
	MaxPages           int               `yaml:"max_pages"`
	DelaySeconds       float64           `yaml:"delay_seconds"`
	AllowedPrefixes    []string          `yaml:"allowed_prefixes"`
	ExcludeURLRegex    []string          `yaml:"exclude_url_regex"`
	SkipSaveTitleRegex []string          `yaml:"skip_save_title_regex"`
	SkipSaveURLRegex   []string          `yaml:"skip_save_url_regex"`
	Extra              map[string]string `yaml:"extra"`
}

// KFSSource configures the case-law scraper.
type KFSSource struct {
	Enabled            bool     `yaml:"enabled"`
	StartURL           string   `yaml:"start_url"`
	DelaySeconds       float64  `yaml:"delay_seconds"`
	MaxCases           int      `yaml:"max_cases"` // 0 = unlimited
	IncludeSummaries   bool     `yaml:"include_summaries"`
	MinContentChars    int      `yaml:"min_content_chars"`
	RequireAnyKeywords []string `yaml:"require_any_keywords"`
}

type ChunkingConfig struct {
	MaxChars     int `yaml:"max_chars"`
	OverlapChars int `yaml:"overlap_chars"`
}

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Normalize bool   `yaml:"normalize"`
	BatchSize int    `yaml:"batch_size"`
}

type DiffConfig struct {
	Enabled           bool `yaml:"enabled"`
	DeactivateMissing bool `yaml:"deactivate_missing"`
}

// LoadSources reads the run configuration from path and fills in defaults.
func LoadSources(path string) (*Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources config: %w", err)
	}

	var s Sources
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse sources config: %w", err)
	}

	applySourceDefaults(&s)

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

func applySourceDefaults(s *Sources) {
	if s.Chunking.MaxChars == 0 {
		s.Chunking.MaxChars = 1200
	}
	if s.Chunking.OverlapChars == 0 {
		s.Chunking.OverlapChars = 200
	}
	if s.Embedding.Provider == "" {
		s.Embedding.Provider = "gemini"
	}
	if s.Embedding.Model == "" {
		s.Embedding.Model = "gemini-embedding-001"
	}
	if s.Embedding.BatchSize == 0 {
		s.Embedding.BatchSize = 64
	}
	if s.MinContentChars == 0 {
		s.MinContentChars = 80
	}
	if s.Egov.MaxLaws == 0 {
		s.Egov.MaxLaws = 500
	}
	if s.Egov.Category == 0 {
		s.Egov.Category = 1
	}
	for i := range s.Crawlers {
		c := &s.Crawlers[i]
		if c.MaxPages == 0 {
			c.MaxPages = 100
		}
		if c.DelaySeconds == 0 {
			c.DelaySeconds = 0.6
		}
	}
	if s.KFS.DelaySeconds == 0 {
		s.KFS.DelaySeconds = 1.2
	}
	if s.KFS.MinContentChars == 0 {
		s.KFS.MinContentChars = 2000
	}
}

func (s *Sources) Validate() error {
	if s.Chunking.OverlapChars >= s.Chunking.MaxChars {
		return fmt.Errorf("chunking: overlap_chars (%d) must be smaller than max_chars (%d)",
			s.Chunking.OverlapChars, s.Chunking.MaxChars)
	}
	seen := map[string]bool{}
	for _, c := range s.Crawlers {
		if c.Name == "" {
			return fmt.Errorf("crawlers: every entry needs a name")
		}
		if seen[c.Name] {
			return fmt.Errorf("crawlers: duplicate name %q", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}
