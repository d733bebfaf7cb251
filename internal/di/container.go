// Package di provides dependency injection configuration for the CineMood server.
package di

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/cinemood/cinemood-server/internal/config"
	"github.com/cinemood/cinemood-server/internal/di/providers"
	"github.com/cinemood/cinemood-server/internal/inference"
	"github.com/cinemood/cinemood-server/internal/logger"
	"github.com/cinemood/cinemood-server/internal/service"
)

// warmTimeout bounds the startup indexing pass.
const warmTimeout = 2 * time.Minute

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideFixtures)

	// Upstream clients
	do.Provide(injector, providers.ProvideTMDBClient)
	do.Provide(injector, providers.ProvideInferenceClient)

	// Business services
	do.Provide(injector, providers.ProvideCatalogService)
	do.Provide(injector, providers.ProvideRecommendationService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once the server is listening.
// The search index is warmed before the server starts taking traffic.
func Bootstrap(injector *do.RootScope) error {
	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		return err
	}
	log, err := do.Invoke[*logger.Logger](injector)
	if err != nil {
		return err
	}

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.FixturesHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.TMDBClientHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*inference.Client](injector); err != nil {
		return err
	}

	catalog, err := do.Invoke[*service.CatalogService](injector)
	if err != nil {
		return err
	}
	if _, err := do.Invoke[*service.RecommendationService](injector); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
	defer cancel()
	start := time.Now()
	if err := catalog.Warm(ctx); err != nil {
		// Search degrades, recommendations still work.
		log.Warn("Search index warm-up failed", "error", err)
	} else {
		log.Info("Search index warmed", "duration", time.Since(start), "remote", cfg.HasTMDB())
	}

	_, err = do.Invoke[*providers.HTTPServerHandle](injector)
	return err
}
