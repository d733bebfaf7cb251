// Package service holds the application services behind the HTTP API.
package service

import (
	"cmp"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cinemood/cinemood-server/internal/domain"
	"github.com/cinemood/cinemood-server/internal/errors"
	"github.com/cinemood/cinemood-server/internal/fixtures"
	"github.com/cinemood/cinemood-server/internal/metrics"
	"github.com/cinemood/cinemood-server/internal/search"
	"github.com/cinemood/cinemood-server/internal/store"
	"github.com/cinemood/cinemood-server/internal/tmdb"
)

// Pool sources, also used as metric labels.
const (
	SourceCache    = "cache"
	SourceTMDB     = "tmdb"
	SourceFixtures = "fixtures"
	SourceRequest  = "request"
	SourceIndex    = "index"
)

// fixturePageSize matches TMDB's list page size.
const fixturePageSize = 20

// MovieProvider is the remote movie catalog.
type MovieProvider interface {
	ListCategory(ctx context.Context, category tmdb.Category, page int) (*tmdb.Page, error)
	Search(ctx context.Context, text string, page int) (*tmdb.Page, error)
	GetMovie(ctx context.Context, id int) (*domain.MovieDetails, error)
}

// CatalogConfig controls candidate pool assembly.
type CatalogConfig struct {
	PoolPages      int             // Pages per category, default 3
	PoolCategories []tmdb.Category // Default popular, top rated, trending
}

// Pool is the candidate set for emotion recommendations.
type Pool struct {
	Movies      []domain.Movie
	Source      string
	RefreshedAt time.Time
}

// SearchResult is one page of movie search results.
type SearchResult struct {
	Query  string         `json:"query"`
	Source string         `json:"source"`
	Total  int            `json:"total"`
	Page   int            `json:"page"`
	Movies []domain.Movie `json:"movies"`
}

// CatalogService assembles movies from the cache, the remote provider and
// the fixture catalog, and keeps the search index in step.
type CatalogService struct {
	provider MovieProvider // nil without a TMDB key
	store    *store.Store
	index    *search.Index
	fixtures *fixtures.Catalog
	cfg      CatalogConfig
	logger   *slog.Logger

	refreshMu sync.Mutex // one pool refresh at a time
}

// NewCatalogService creates a catalog service. provider may be nil, in which
// case the fixture catalog is the whole catalog.
func NewCatalogService(provider MovieProvider, st *store.Store, index *search.Index, fx *fixtures.Catalog, cfg CatalogConfig, logger *slog.Logger) *CatalogService {
	if cfg.PoolPages <= 0 {
		cfg.PoolPages = 3
	}
	if len(cfg.PoolCategories) == 0 {
		cfg.PoolCategories = []tmdb.Category{tmdb.CategoryPopular, tmdb.CategoryTopRated, tmdb.CategoryTrending}
	}
	if fx == nil {
		fx = fixtures.Default(logger)
	}

	s := &CatalogService{
		provider: provider,
		store:    st,
		index:    index,
		fixtures: fx,
		cfg:      cfg,
		logger:   logger,
	}

	fx.OnReload(func(movies []domain.Movie) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.indexMovies(ctx, movies)
	})

	return s
}

// Remote reports whether a remote provider is configured.
func (s *CatalogService) Remote() bool {
	return s.provider != nil
}

// Warm indexes the fixture catalog, and the cached pool when a provider is
// configured. It is safe to call at startup before serving traffic.
func (s *CatalogService) Warm(ctx context.Context) error {
	s.indexMovies(ctx, s.fixtures.Movies())

	if s.provider == nil {
		return nil
	}

	cached, err := s.store.ListMovies(ctx)
	if err != nil {
		return fmt.Errorf("warm search index: %w", err)
	}
	s.indexMovies(ctx, cached)
	return nil
}

// CandidatePool returns the movies to rank for an emotion. The order of
// preference is a live cached pool, a fresh fetch from the provider, then
// the fixture catalog.
func (s *CatalogService) CandidatePool(ctx context.Context) (*Pool, error) {
	if s.provider == nil {
		pool := &Pool{Movies: s.fixtures.Movies(), Source: SourceFixtures, RefreshedAt: s.fixtures.LoadedAt()}
		metrics.CatalogPoolSize.Set(float64(len(pool.Movies)))
		return pool, nil
	}

	if pool, err := s.cachedPool(ctx); err != nil {
		return nil, err
	} else if pool != nil {
		return pool, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	if pool, err := s.cachedPool(ctx); err != nil {
		return nil, err
	} else if pool != nil {
		return pool, nil
	}

	pool, err := s.refreshPool(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn("candidate pool refresh failed, using fixture catalog", "error", err)
		pool = &Pool{Movies: s.fixtures.Movies(), Source: SourceFixtures, RefreshedAt: s.fixtures.LoadedAt()}
	}

	metrics.CatalogPoolSize.Set(float64(len(pool.Movies)))
	return pool, nil
}

// RefreshPool fetches the pool from the provider regardless of the cache.
func (s *CatalogService) RefreshPool(ctx context.Context) (*Pool, error) {
	if s.provider == nil {
		return nil, errors.Unavailable("no remote catalog configured")
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	pool, err := s.refreshPool(ctx)
	if err != nil {
		return nil, catalogError("refresh candidate pool", err)
	}
	metrics.CatalogPoolSize.Set(float64(len(pool.Movies)))
	return pool, nil
}

// cachedPool returns the cached pool, or nil when it is missing or stale.
func (s *CatalogService) cachedPool(ctx context.Context) (*Pool, error) {
	at, ok, err := s.store.PoolRefreshedAt(ctx)
	if err != nil {
		return nil, fmt.Errorf("read candidate pool: %w", err)
	}
	if !ok {
		return nil, nil
	}

	movies, err := s.store.ListMovies(ctx)
	if err != nil {
		return nil, fmt.Errorf("read candidate pool: %w", err)
	}
	if len(movies) == 0 {
		return nil, nil
	}

	metrics.CatalogPoolSize.Set(float64(len(movies)))
	return &Pool{Movies: movies, Source: SourceCache, RefreshedAt: at}, nil
}

// refreshPool fetches every configured category page. Individual page
// failures are tolerated as long as something came back.
func (s *CatalogService) refreshPool(ctx context.Context) (*Pool, error) {
	start := time.Now()

	var movies []domain.Movie
	seen := make(map[int]struct{})
	var errs []error

	for _, category := range s.cfg.PoolCategories {
		for page := 1; page <= s.cfg.PoolPages; page++ {
			result, err := s.provider.ListCategory(ctx, category, page)
			if err != nil {
				errs = append(errs, err)
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				// A later page cannot succeed if this one failed for availability.
				break
			}
			for _, m := range result.Movies {
				if _, dup := seen[m.ID]; dup {
					continue
				}
				seen[m.ID] = struct{}{}
				movies = append(movies, m)
			}
			if page >= result.TotalPages {
				break
			}
		}
	}

	if len(movies) == 0 {
		if len(errs) > 0 {
			return nil, stderrors.Join(errs...)
		}
		return nil, errors.Unavailable("provider returned an empty catalog")
	}

	if err := s.store.PutMovies(ctx, movies); err != nil {
		s.logger.Warn("failed to cache candidate pool", "error", err)
	} else if err := s.store.MarkPoolRefreshed(ctx, time.Now()); err != nil {
		s.logger.Warn("failed to mark candidate pool refreshed", "error", err)
	}
	s.indexMovies(ctx, movies)

	s.logger.Info("candidate pool refreshed",
		"movies", len(movies),
		"failed_pages", len(errs),
		"duration", time.Since(start),
	)

	return &Pool{Movies: movies, Source: SourceTMDB, RefreshedAt: time.Now()}, nil
}

// GetMovie returns the full record for a movie.
func (s *CatalogService) GetMovie(ctx context.Context, id int) (*domain.MovieDetails, error) {
	if id <= 0 {
		return nil, errors.InvalidArgumentf("movie id must be positive, got %d", id)
	}

	if d, err := s.store.GetDetails(ctx, id); err == nil {
		return d, nil
	} else if !stderrors.Is(err, store.ErrNotFound) {
		s.logger.Warn("details cache read failed", "movie_id", id, "error", err)
	}

	if s.provider == nil {
		m, ok := s.fixtures.Find(id)
		if !ok {
			return nil, errors.NotFoundf("movie %d not found", id)
		}
		return &domain.MovieDetails{Movie: m}, nil
	}

	details, err := s.provider.GetMovie(ctx, id)
	if err != nil {
		return nil, catalogError(fmt.Sprintf("fetch movie %d", id), err)
	}

	if err := s.store.PutDetails(ctx, details); err != nil {
		s.logger.Warn("failed to cache movie details", "movie_id", id, "error", err)
	}
	return details, nil
}

// ListCategory returns one page of a curated list.
func (s *CatalogService) ListCategory(ctx context.Context, category tmdb.Category, page int) (*tmdb.Page, error) {
	if !category.Valid() {
		return nil, errors.InvalidArgumentf("unknown category %q", category)
	}
	if page < 1 {
		page = 1
	}

	if s.provider == nil {
		return s.fixturePage(category, page), nil
	}

	result, err := s.provider.ListCategory(ctx, category, page)
	if err != nil {
		return nil, catalogError(fmt.Sprintf("list %s", category), err)
	}
	s.remember(ctx, result.Movies)
	return result, nil
}

// fixturePage orders the fixture catalog the way the category would rank it.
func (s *CatalogService) fixturePage(category tmdb.Category, page int) *tmdb.Page {
	movies := s.fixtures.Movies()

	switch category {
	case tmdb.CategoryTopRated:
		slices.SortStableFunc(movies, func(a, b domain.Movie) int { return cmp.Compare(b.VoteAverage, a.VoteAverage) })
	case tmdb.CategoryUpcoming, tmdb.CategoryNowPlaying:
		slices.SortStableFunc(movies, func(a, b domain.Movie) int { return cmp.Compare(b.ReleaseDate, a.ReleaseDate) })
	default:
		slices.SortStableFunc(movies, func(a, b domain.Movie) int { return cmp.Compare(b.Popularity, a.Popularity) })
	}

	total := len(movies)
	totalPages := max(1, (total+fixturePageSize-1)/fixturePageSize)
	start := min((page-1)*fixturePageSize, total)
	end := min(start+fixturePageSize, total)

	return &tmdb.Page{
		Movies:       movies[start:end],
		Page:         page,
		TotalPages:   totalPages,
		TotalResults: total,
	}
}

// Search looks in the local index first and asks the provider when the
// index has nothing for a text query. Provider results are kept for next time.
func (s *CatalogService) Search(ctx context.Context, params search.Params) (*SearchResult, error) {
	params.Limit = cmp.Or(params.Limit, fixturePageSize)
	page := params.Offset/max(params.Limit, 1) + 1

	local, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search catalog: %w", err)
	}

	if len(local.Hits) > 0 || s.provider == nil || params.Query == "" {
		return &SearchResult{
			Query:  params.Query,
			Source: SourceIndex,
			Total:  int(local.Total),
			Page:   page,
			Movies: s.resolveHits(ctx, local.Hits),
		}, nil
	}

	remote, err := s.provider.Search(ctx, params.Query, page)
	if err != nil {
		return nil, catalogError("search movies", err)
	}
	s.remember(ctx, remote.Movies)

	return &SearchResult{
		Query:  params.Query,
		Source: SourceTMDB,
		Total:  remote.TotalResults,
		Page:   remote.Page,
		Movies: remote.Movies,
	}, nil
}

// resolveHits loads the movies behind index hits, skipping any that have
// aged out of both the cache and the fixture catalog.
func (s *CatalogService) resolveHits(ctx context.Context, hits []search.Hit) []domain.Movie {
	movies := make([]domain.Movie, 0, len(hits))
	for _, hit := range hits {
		if m, err := s.store.GetMovie(ctx, hit.MovieID); err == nil {
			movies = append(movies, *m)
			continue
		}
		if m, ok := s.fixtures.Find(hit.MovieID); ok {
			movies = append(movies, m)
			continue
		}
		s.logger.Debug("search hit no longer cached", "movie_id", hit.MovieID)
	}
	return movies
}

// remember caches and indexes movies seen outside a pool refresh, so later
// searches can resolve them. They also join the candidate pool.
func (s *CatalogService) remember(ctx context.Context, movies []domain.Movie) {
	if err := s.store.PutMovies(ctx, movies); err != nil {
		s.logger.Warn("failed to cache movies", "count", len(movies), "error", err)
	}
	s.indexMovies(ctx, movies)
}

func (s *CatalogService) indexMovies(ctx context.Context, movies []domain.Movie) {
	if s.index == nil || len(movies) == 0 {
		return
	}
	if err := s.index.IndexMovies(ctx, movies); err != nil {
		s.logger.Warn("failed to index movies", "count", len(movies), "error", err)
	}
}
