// Package store is the Badger-backed movie cache. Entries expire after a
// configurable TTL so the catalog follows the provider without explicit
// invalidation.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/cinemood/cinemood-server/internal/domain"
)

// ErrNotFound is returned when a key is missing or expired.
var ErrNotFound = errors.New("store: not found")

// Key prefixes.
const (
	moviePrefix   = "movie:"
	detailsPrefix = "details:"
	metaPrefix    = "meta:"
)

// Options configures a Store.
type Options struct {
	// TTL applied to cached entries. Zero keeps entries until overwritten.
	TTL time.Duration
	// InMemory runs Badger without touching disk. Path must be empty.
	InMemory bool
}

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	ttl    time.Duration

	Movies  *Entity[domain.Movie]
	Details *Entity[domain.MovieDetails]
}

// New opens (or creates) the cache at path.
func New(path string, logger *slog.Logger, opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(path)
	bopts.Logger = nil // Badger's internal logging is too chatty
	bopts.CompactL0OnClose = true
	if opts.InMemory {
		bopts = bopts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
		ttl:    opts.TTL,
	}
	s.Movies = NewEntity[domain.Movie](s, moviePrefix)
	s.Details = NewEntity[domain.MovieDetails](s, detailsPrefix)

	if logger != nil {
		logger.Info("movie cache opened", "path", path, "ttl", opts.TTL, "in_memory", opts.InMemory)
	}

	return s, nil
}

// Close gracefully closes the database.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("closing movie cache")
	}
	return s.db.Close()
}

// TTL returns the expiry applied to cached entries.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// RunGC reclaims value log space every interval until ctx is done.
func (s *Store) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Keep collecting while Badger finds files worth rewriting.
			for s.db.RunValueLogGC(0.5) == nil {
			}
		}
	}
}

// entry builds a Badger entry carrying the store TTL.
func (s *Store) entry(key string, value []byte) *badger.Entry {
	e := badger.NewEntry([]byte(key), value)
	if s.ttl > 0 {
		e = e.WithTTL(s.ttl)
	}
	return e
}
