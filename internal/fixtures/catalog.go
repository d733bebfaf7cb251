package fixtures

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/cinemood/cinemood-server/internal/domain"
)

// ErrNoFile is returned when watching a catalog that was not loaded from disk.
var ErrNoFile = errors.New("fixtures: catalog has no backing file")

// Catalog is an in-memory movie list, optionally backed by a file.
type Catalog struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	movies   []domain.Movie
	loadedAt time.Time
	onReload []func([]domain.Movie)

	watchMu sync.Mutex
	watch   *watcher
}

// Default returns the built-in catalog.
func Default(logger *slog.Logger) *Catalog {
	movies, err := Parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("fixtures: built-in catalog is invalid: %v", err))
	}
	c := newCatalog("", logger)
	c.set(movies)
	return c
}

// Open loads a catalog from path.
func Open(path string, logger *slog.Logger) (*Catalog, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve fixture path: %w", err)
	}

	c := newCatalog(abs, logger)
	movies, err := c.read()
	if err != nil {
		return nil, err
	}
	c.set(movies)
	c.logger.Info("fixture catalog loaded", "path", abs, "movies", len(movies))

	return c, nil
}

func newCatalog(path string, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Catalog{path: path, logger: logger}
}

// Path returns the backing file, or "" for the built-in catalog.
func (c *Catalog) Path() string {
	return c.path
}

// Movies returns a copy of the current catalog.
func (c *Catalog) Movies() []domain.Movie {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.movies)
}

// Len returns the number of movies.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.movies)
}

// LoadedAt returns when the current catalog was loaded.
func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Find returns the movie with the given ID.
func (c *Catalog) Find(id int) (domain.Movie, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.movies {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Movie{}, false
}

// OnReload registers fn to run after every successful reload.
func (c *Catalog) OnReload(fn func([]domain.Movie)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReload = append(c.onReload, fn)
}

// Reload re-reads the backing file. On error the current catalog is kept.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return ErrNoFile
	}

	movies, err := c.read()
	if err != nil {
		c.logger.Warn("fixture reload failed, keeping current catalog", "path", c.path, "error", err)
		return err
	}

	c.set(movies)

	c.mu.RLock()
	hooks := slices.Clone(c.onReload)
	c.mu.RUnlock()

	c.logger.Info("fixture catalog reloaded", "path", c.path, "movies", len(movies))
	for _, fn := range hooks {
		fn(slices.Clone(movies))
	}

	return nil
}

// Close stops the file watcher, if any.
func (c *Catalog) Close() error {
	c.watchMu.Lock()
	w := c.watch
	c.watch = nil
	c.watchMu.Unlock()

	if w == nil {
		return nil
	}
	return w.stop()
}

func (c *Catalog) read() ([]domain.Movie, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	movies, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(c.path), err)
	}
	return movies, nil
}

func (c *Catalog) set(movies []domain.Movie) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.movies = movies
	c.loadedAt = time.Now()
}
