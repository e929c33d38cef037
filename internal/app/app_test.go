package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexrag/internal/config"
)

func TestBuildCollectors_OrderAndEnablement(t *testing.T) {
	sources := &config.Sources{
		Egov: config.EgovSource{Enabled: true, Category: 1},
		Crawlers: []config.CrawlerSource{
			{Name: "nta", Enabled: true, Seeds: []string{"https://www.nta.go.jp/"}},
			{Name: "mof", Enabled: false, Seeds: []string{"https://www.mof.go.jp/"}},
		},
		KFS: config.KFSSource{Enabled: true, StartURL: "https://www.kfs.go.jp/service/JP/index.html"},
	}

	collectors, err := BuildCollectors(sources)
	require.NoError(t, err)

	require.Len(t, collectors, 3)
	assert.Equal(t, "egov", collectors[0].Name())
	assert.Equal(t, "nta", collectors[1].Name())
	assert.Equal(t, "kfs", collectors[2].Name())
}

func TestBuildCollectors_AllDisabled(t *testing.T) {
	collectors, err := BuildCollectors(&config.Sources{})
	require.NoError(t, err)
	assert.Empty(t, collectors)
}

func TestBuildCollectors_BadCrawler(t *testing.T) {
	sources := &config.Sources{
		Crawlers: []config.CrawlerSource{{Name: "broken", Enabled: true}},
	}

	_, err := BuildCollectors(sources)
	require.Error(t, err)
}

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	_, err := NewEmbedder(context.Background(), &config.Config{}, config.EmbeddingConfig{Provider: "cohere"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown embedding provider")
}

func TestNewEmbedder_OpenAIRequiresKey(t *testing.T) {
	_, err := NewEmbedder(context.Background(), &config.Config{}, config.EmbeddingConfig{Provider: "openai"})
	require.Error(t, err)
}

func TestNewEmbedder_GeminiRequiresKey(t *testing.T) {
	_, err := NewEmbedder(context.Background(), &config.Config{}, config.EmbeddingConfig{Provider: "gemini"})
	require.Error(t, err)
}
