package providers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinemood/cinemood-server/internal/config"
	"github.com/cinemood/cinemood-server/internal/inference"
	"github.com/cinemood/cinemood-server/internal/logger"
	"github.com/cinemood/cinemood-server/internal/service"
)

func testInjector(t *testing.T, mutate func(*config.Config)) do.Injector {
	t.Helper()

	cfg := &config.Config{
		App:    config.AppConfig{Environment: "development"},
		Logger: config.LoggerConfig{Level: "error"},
		Data:   config.DataConfig{BasePath: t.TempDir()},
		TMDB: config.TMDBConfig{
			BaseURL:           "https://api.themoviedb.org/3",
			RequestsPerSecond: 20,
		},
		Inference: config.InferenceConfig{Timeout: time.Second},
		Catalog:   config.CatalogConfig{CacheTTL: time.Hour, PoolPages: 1},
	}
	if mutate != nil {
		mutate(cfg)
	}

	injector := do.New()
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger.Discard())

	do.Provide(injector, ProvideStore)
	do.Provide(injector, ProvideSearchIndex)
	do.Provide(injector, ProvideFixtures)
	do.Provide(injector, ProvideTMDBClient)
	do.Provide(injector, ProvideInferenceClient)
	do.Provide(injector, ProvideCatalogService)
	do.Provide(injector, ProvideRecommendationService)

	t.Cleanup(func() { _ = injector.Shutdown() })
	return injector
}

func TestProvideCatalogService_WithoutTMDBKey(t *testing.T) {
	injector := testInjector(t, nil)

	handle := do.MustInvoke[*TMDBClientHandle](injector)
	assert.Nil(t, handle.Client)

	catalog := do.MustInvoke[*service.CatalogService](injector)
	assert.False(t, catalog.Remote(), "a missing client must not look like a provider")
}

func TestProvideCatalogService_WithTMDBKey(t *testing.T) {
	injector := testInjector(t, func(c *config.Config) { c.TMDB.APIKey = "test-key" })

	handle := do.MustInvoke[*TMDBClientHandle](injector)
	require.NotNil(t, handle.Client)

	catalog := do.MustInvoke[*service.CatalogService](injector)
	assert.True(t, catalog.Remote())
}

func TestProvideInferenceClient_Disabled(t *testing.T) {
	injector := testInjector(t, nil)

	client := do.MustInvoke[*inference.Client](injector)
	assert.False(t, client.Enabled())

	// Recommendations still resolve with a disabled detector.
	assert.NotNil(t, do.MustInvoke[*service.RecommendationService](injector))
}

func TestProvideFixtures_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movies.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": 1, "title": "Only Movie", "vote_average": 7, "genres": [{"id": 35, "name": "Comedy"}]}]`), 0o600))

	injector := testInjector(t, func(c *config.Config) {
		c.Catalog.FixturePath = path
		c.Catalog.WatchFixtures = true
	})

	handle := do.MustInvoke[*FixturesHandle](injector)
	assert.Equal(t, 1, handle.Len())
	assert.Equal(t, path, handle.Path())
}

func TestProvideFixtures_MissingFile(t *testing.T) {
	injector := testInjector(t, func(c *config.Config) {
		c.Catalog.FixturePath = filepath.Join(t.TempDir(), "missing.json")
	})

	_, err := do.Invoke[*FixturesHandle](injector)
	assert.Error(t, err)
}

func TestProvideStoreAndIndex_UnderDataPath(t *testing.T) {
	var base string
	injector := testInjector(t, func(c *config.Config) { base = c.Data.BasePath })

	do.MustInvoke[*StoreHandle](injector)
	do.MustInvoke[*SearchIndexHandle](injector)

	assert.DirExists(t, filepath.Join(base, "cache"))
}
