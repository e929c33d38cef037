package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexrag/internal/config"
)

func writeSources(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSources_Defaults(t *testing.T) {
	path := writeSources(t, `
egov:
  enabled: true
  keywords: ["法人税", "所得税"]
`)

	s, err := config.LoadSources(path)
	require.NoError(t, err)

	assert.True(t, s.Egov.Enabled)
	assert.Equal(t, 1200, s.Chunking.MaxChars)
	assert.Equal(t, 200, s.Chunking.OverlapChars)
	assert.Equal(t, "gemini", s.Embedding.Provider)
	assert.Equal(t, 64, s.Embedding.BatchSize)
	assert.Equal(t, 80, s.MinContentChars)
	assert.Equal(t, 500, s.Egov.MaxLaws)
	assert.Equal(t, 1, s.Egov.Category)
}

func TestLoadSources_Crawlers(t *testing.T) {
	path := writeSources(t, `
crawlers:
  - name: nta
    enabled: true
    seeds: ["https://www.nta.go.jp/law/tsutatsu/kihon/hojin/01.htm"]
    allowed_prefixes: ["https://www.nta.go.jp/"]
    extra:
      nta_kind: kihon
  - name: nta_sochiho
    enabled: false
    max_pages: 2500
`)

	s, err := config.LoadSources(path)
	require.NoError(t, err)
	require.Len(t, s.Crawlers, 2)

	assert.Equal(t, "nta", s.Crawlers[0].Name)
	assert.Equal(t, 100, s.Crawlers[0].MaxPages)
	assert.InDelta(t, 0.6, s.Crawlers[0].DelaySeconds, 1e-9)
	assert.Equal(t, "kihon", s.Crawlers[0].Extra["nta_kind"])
	assert.Equal(t, 2500, s.Crawlers[1].MaxPages)
}

func TestLoadSources_InvalidOverlap(t *testing.T) {
	path := writeSources(t, `
chunking:
  max_chars: 100
  overlap_chars: 100
`)

	_, err := config.LoadSources(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap_chars")
}

func TestLoadSources_DuplicateCrawlerName(t *testing.T) {
	path := writeSources(t, `
crawlers:
  - name: nta
  - name: nta
`)

	_, err := config.LoadSources(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate name")
}

func TestLoadSources_MissingFile(t *testing.T) {
	_, err := config.LoadSources(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
