package providers

import (
	"github.com/samber/do/v2"

	"github.com/cinemood/cinemood-server/internal/config"
	"github.com/cinemood/cinemood-server/internal/inference"
	"github.com/cinemood/cinemood-server/internal/logger"
	"github.com/cinemood/cinemood-server/internal/tmdb"
)

// TMDBClientHandle wraps the TMDB client. Client is nil when no API key is
// configured and the fixture catalog stands in.
type TMDBClientHandle struct {
	Client *tmdb.Client
}

// Shutdown implements do.Shutdownable.
func (h *TMDBClientHandle) Shutdown() error {
	if h.Client != nil {
		h.Client.Close()
	}
	return nil
}

// ProvideTMDBClient provides the TMDB metadata client.
func ProvideTMDBClient(i do.Injector) (*TMDBClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.HasTMDB() {
		log.Info("TMDB API key not set, serving the fixture catalog")
		return &TMDBClientHandle{}, nil
	}

	client, err := tmdb.New(tmdb.Config{
		APIKey:            cfg.TMDB.APIKey,
		BaseURL:           cfg.TMDB.BaseURL,
		ImageBaseURL:      cfg.TMDB.ImageBaseURL,
		Language:          cfg.TMDB.Language,
		Region:            cfg.TMDB.Region,
		RequestsPerSecond: cfg.TMDB.RequestsPerSecond,
		Burst:             cfg.TMDB.Burst,
	}, log.WithComponent("tmdb").Logger)
	if err != nil {
		return nil, err
	}

	log.Info("TMDB client initialized", "base_url", cfg.TMDB.BaseURL, "rps", cfg.TMDB.RequestsPerSecond)

	return &TMDBClientHandle{Client: client}, nil
}

// ProvideInferenceClient provides the emotion detection client. An empty URL
// yields a disabled client and every detection falls back to neutral.
func ProvideInferenceClient(i do.Injector) (*inference.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := inference.New(inference.Config{
		URL:           cfg.Inference.URL,
		Timeout:       cfg.Inference.Timeout,
		MaxImageBytes: cfg.Inference.MaxImageBytes,
	}, log.WithComponent("inference").Logger)

	if client.Enabled() {
		log.Info("Emotion detection enabled", "url", cfg.Inference.URL)
	} else {
		log.Info("Emotion detection disabled, detections fall back to neutral")
	}

	return client, nil
}
