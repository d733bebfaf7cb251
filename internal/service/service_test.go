package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cinemood/cinemood-server/internal/domain"
	"github.com/cinemood/cinemood-server/internal/fixtures"
	"github.com/cinemood/cinemood-server/internal/inference"
	"github.com/cinemood/cinemood-server/internal/logger"
	"github.com/cinemood/cinemood-server/internal/recommend"
	"github.com/cinemood/cinemood-server/internal/search"
	"github.com/cinemood/cinemood-server/internal/store"
	"github.com/cinemood/cinemood-server/internal/tmdb"
)

// fakeProvider serves canned pages and counts calls.
type fakeProvider struct {
	mu      sync.Mutex
	pages   map[tmdb.Category][]domain.Movie
	details map[int]*domain.MovieDetails
	search  []domain.Movie
	err     error
	calls   map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		pages:   make(map[tmdb.Category][]domain.Movie),
		details: make(map[int]*domain.MovieDetails),
		calls:   make(map[string]int),
	}
}

func (f *fakeProvider) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeProvider) ListCategory(_ context.Context, category tmdb.Category, page int) (*tmdb.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["list"]++
	if f.err != nil {
		return nil, f.err
	}
	movies := f.pages[category]
	if page > 1 {
		movies = nil
	}
	return &tmdb.Page{Movies: movies, Page: page, TotalPages: 1, TotalResults: len(movies)}, nil
}

func (f *fakeProvider) Search(_ context.Context, text string, page int) (*tmdb.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["search"]++
	if f.err != nil {
		return nil, f.err
	}
	return &tmdb.Page{Movies: f.search, Page: page, TotalPages: 1, TotalResults: len(f.search)}, nil
}

func (f *fakeProvider) GetMovie(_ context.Context, id int) (*domain.MovieDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["get"]++
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.details[id]
	if !ok {
		return nil, &tmdb.Error{Op: "getMovie", Subject: fmt.Sprint(id), Err: tmdb.ErrNotFound}
	}
	return d, nil
}

// fakeDetector returns a fixed detection or error.
type fakeDetector struct {
	enabled   bool
	detection *inference.Detection
	err       error
}

func (f *fakeDetector) Enabled() bool { return f.enabled }

func (f *fakeDetector) Detect(_ context.Context, _ string) (*inference.Detection, error) {
	return f.detection, f.err
}

func movie(id int, title string, vote float64, genres ...string) domain.Movie {
	m := domain.Movie{ID: id, Title: title, ReleaseDate: "2024-05-01", VoteAverage: vote, Popularity: float64(id)}
	for _, g := range genres {
		m.Genres = append(m.Genres, domain.Genre{Name: g})
	}
	return m
}

type testEnv struct {
	store    *store.Store
	index    *search.Index
	fixtures *fixtures.Catalog
	catalog  *CatalogService
}

func newTestEnv(t *testing.T, provider MovieProvider, fx *fixtures.Catalog) *testEnv {
	t.Helper()

	log := logger.Discard().Logger

	st, err := store.New("", log, store.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	index, err := search.NewIndex(search.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	if fx == nil {
		fx = fixtures.Default(log)
	}

	return &testEnv{
		store:    st,
		index:    index,
		fixtures: fx,
		catalog:  NewCatalogService(provider, st, index, fx, CatalogConfig{PoolPages: 2}, log),
	}
}

func (e *testEnv) recommendations(detector Detector) *RecommendationService {
	return NewRecommendationService(recommend.New(), e.catalog, detector, logger.Discard().Logger)
}
