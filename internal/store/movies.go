package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/cinemood/cinemood-server/internal/domain"
	"github.com/cinemood/cinemood-server/internal/metrics"
)

const poolRefreshedKey = metaPrefix + "pool_refreshed_at"

func movieKey(m *domain.Movie) string {
	return strconv.Itoa(m.ID)
}

// PutMovies caches movies, keyed by ID.
func (s *Store) PutMovies(ctx context.Context, movies []domain.Movie) error {
	if len(movies) == 0 {
		return nil
	}
	if err := s.Movies.PutMany(ctx, movies, movieKey); err != nil {
		return fmt.Errorf("put movies: %w", err)
	}
	return nil
}

// GetMovie returns a cached movie.
func (s *Store) GetMovie(ctx context.Context, id int) (*domain.Movie, error) {
	m, err := s.Movies.Get(ctx, strconv.Itoa(id))
	metrics.RecordCacheLookup(err == nil)
	return m, err
}

// ListMovies returns every cached movie in key order.
func (s *Store) ListMovies(ctx context.Context) ([]domain.Movie, error) {
	var movies []domain.Movie
	for m, err := range s.Movies.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list movies: %w", err)
		}
		movies = append(movies, *m)
	}
	return movies, nil
}

// CountMovies returns the number of cached movies.
func (s *Store) CountMovies(ctx context.Context) (int, error) {
	return s.Movies.Count(ctx)
}

// PutDetails caches a full movie record.
func (s *Store) PutDetails(ctx context.Context, d *domain.MovieDetails) error {
	return s.Details.Put(ctx, strconv.Itoa(d.ID), d)
}

// GetDetails returns a cached full movie record.
func (s *Store) GetDetails(ctx context.Context, id int) (*domain.MovieDetails, error) {
	d, err := s.Details.Get(ctx, strconv.Itoa(id))
	metrics.RecordCacheLookup(err == nil)
	return d, err
}

// MarkPoolRefreshed records when the candidate pool was last fetched.
// The marker expires with the cache TTL.
func (s *Store) MarkPoolRefreshed(ctx context.Context, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value := []byte(at.UTC().Format(time.RFC3339Nano))
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(s.entry(poolRefreshedKey, value))
	})
}

// PoolRefreshedAt reports when the pool was last refreshed. ok is false
// when there is no live marker.
func (s *Store) PoolRefreshedAt(ctx context.Context) (at time.Time, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(poolRefreshedKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			at, err = time.Parse(time.RFC3339Nano, string(val))
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read pool marker: %w", err)
	}
	return at, true, nil
}
