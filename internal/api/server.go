// Package api provides the HTTP API server and handlers for CineMood.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cinemood/cinemood-server/internal/http/response"
	"github.com/cinemood/cinemood-server/internal/metrics"
	"github.com/cinemood/cinemood-server/internal/search"
	"github.com/cinemood/cinemood-server/internal/service"
	"github.com/cinemood/cinemood-server/internal/store"
	"github.com/cinemood/cinemood-server/internal/validation"
)

// Services groups the business services used by the API server.
type Services struct {
	Catalog         *service.CatalogService
	Recommendations *service.RecommendationService
}

// Options tunes the HTTP surface.
type Options struct {
	AllowedOrigins []string

	// Per-IP limit on emotion detection, which fans out to the classifier.
	DetectRatePerMinute int
	DetectBurst         int
	DetectMaxBodyBytes  int64
}

// Detection defaults.
const (
	defaultDetectRatePerMinute = 30
	defaultDetectBurst         = 10
	defaultDetectMaxBodyBytes  = 8 << 20
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    *store.Store
	index    *search.Index
	services *Services
	opts     Options

	router        *chi.Mux
	api           huma.API
	validator     *validation.Validator
	detectLimiter *RateLimiter
	logger        *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, index *search.Index, services *Services, opts Options, logger *slog.Logger) *Server {
	if opts.DetectRatePerMinute <= 0 {
		opts.DetectRatePerMinute = defaultDetectRatePerMinute
	}
	if opts.DetectBurst <= 0 {
		opts.DetectBurst = defaultDetectBurst
	}
	if opts.DetectMaxBodyBytes <= 0 {
		opts.DetectMaxBodyBytes = defaultDetectMaxBodyBytes
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	router := chi.NewRouter()

	s := &Server{
		store:         st,
		index:         index,
		services:      services,
		opts:          opts,
		router:        router,
		validator:     validation.New(),
		detectLimiter: NewRateLimiter(opts.DetectRatePerMinute, time.Minute, opts.DetectBurst),
		logger:        logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("CineMood API", "1.0.0")
	humaConfig.Info.Description = "Emotion-aware movie recommendations"
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.detectLimiter.Stop()
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	s.router.Use(instrument)

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "route not found", s.logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, "method not allowed", s.logger)
	})
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", metrics.Handler())

	s.registerHealthRoutes()
	s.registerEmotionRoutes()
	s.registerRecommendationRoutes()
	s.registerMovieRoutes()
}
