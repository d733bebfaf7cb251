package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/cinemood/cinemood-server/internal/config"
	"github.com/cinemood/cinemood-server/internal/fixtures"
	"github.com/cinemood/cinemood-server/internal/inference"
	"github.com/cinemood/cinemood-server/internal/logger"
	"github.com/cinemood/cinemood-server/internal/recommend"
	"github.com/cinemood/cinemood-server/internal/service"
)

// FixturesHandle wraps the fixture catalog and its file watcher.
type FixturesHandle struct {
	*fixtures.Catalog
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *FixturesHandle) Shutdown() error {
	h.cancel()
	return h.Close()
}

// ProvideFixtures provides the fixture catalog: the configured file when one
// is set, otherwise the catalog built into the binary.
func ProvideFixtures(i do.Injector) (*FixturesHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	if cfg.Catalog.FixturePath == "" {
		catalog := fixtures.Default(log.Logger)
		log.Info("Fixture catalog loaded", "source", "builtin", "movies", catalog.Len())
		return &FixturesHandle{Catalog: catalog, cancel: cancel}, nil
	}

	catalog, err := fixtures.Open(cfg.Catalog.FixturePath, log.Logger)
	if err != nil {
		cancel()
		return nil, err
	}
	log.Info("Fixture catalog loaded", "path", catalog.Path(), "movies", catalog.Len())

	if cfg.Catalog.WatchFixtures {
		if err := catalog.Watch(ctx, fixtures.DefaultSettleDelay); err != nil {
			cancel()
			_ = catalog.Close()
			return nil, err
		}
		log.Info("Watching fixture catalog", "path", catalog.Path())
	}

	return &FixturesHandle{Catalog: catalog, cancel: cancel}, nil
}

// ProvideCatalogService provides the catalog service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	tmdbHandle := do.MustInvoke[*TMDBClientHandle](i)
	fixturesHandle := do.MustInvoke[*FixturesHandle](i)

	// A nil *tmdb.Client must not become a non-nil interface.
	var provider service.MovieProvider
	if tmdbHandle.Client != nil {
		provider = tmdbHandle.Client
	}

	return service.NewCatalogService(
		provider,
		storeHandle.Store,
		indexHandle.Index,
		fixturesHandle.Catalog,
		service.CatalogConfig{PoolPages: cfg.Catalog.PoolPages},
		log.WithComponent("catalog").Logger,
	), nil
}

// ProvideRecommendationService provides the recommendation service.
func ProvideRecommendationService(i do.Injector) (*service.RecommendationService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	catalog := do.MustInvoke[*service.CatalogService](i)
	detector := do.MustInvoke[*inference.Client](i)

	return service.NewRecommendationService(
		recommend.New(),
		catalog,
		detector,
		log.WithComponent("recommend").Logger,
	), nil
}
