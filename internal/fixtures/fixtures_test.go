package fixtures

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinemood/cinemood-server/internal/domain"
	domainerrors "github.com/cinemood/cinemood-server/internal/errors"
)

func TestParse_Object(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "small.json"))
	require.NoError(t, err)

	movies, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, movies, 2)

	// File genres replace the TMDB taxonomy; unknown IDs are dropped.
	assert.Equal(t, []domain.Genre{{ID: 1, Name: "Comedy"}}, movies[0].Genres)
	assert.Equal(t, []domain.Genre{{ID: 2, Name: "Horror"}}, movies[1].Genres)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/night.jpg", movies[1].PosterURL)
	assert.Empty(t, movies[0].PosterURL)
}

func TestParse_BareArray(t *testing.T) {
	movies, err := Parse([]byte(` [{"id": 1, "title": "Heat", "genre_ids": [28, 80]}]`))
	require.NoError(t, err)

	require.Len(t, movies, 1)
	assert.Equal(t, []string{"Action", "Crime"}, movies[0].GenreNames())
}

func TestParse_GenreObjectsWin(t *testing.T) {
	movies, err := Parse([]byte(`[{"id": 1, "title": "Heat", "genre_ids": [28], "genres": [{"id": 0, "name": "Heist"}]}]`))
	require.NoError(t, err)

	assert.Equal(t, []string{"Heist"}, movies[0].GenreNames())
}

func TestParse_NoGenresIsEmptySlice(t *testing.T) {
	movies, err := Parse([]byte(`[{"id": 1, "title": "Heat"}]`))
	require.NoError(t, err)

	assert.NotNil(t, movies[0].Genres)
	assert.Empty(t, movies[0].Genres)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		code domainerrors.Code
	}{
		{"missing title", `[{"id": 1}]`, domainerrors.CodeValidation},
		{"zero id", `[{"id": 0, "title": "x"}]`, domainerrors.CodeValidation},
		{"rating out of range", `[{"id": 1, "title": "x", "vote_average": 12}]`, domainerrors.CodeValidation},
		{"bad poster url", `[{"id": 1, "title": "x", "poster_url": "nope"}]`, domainerrors.CodeValidation},
		{"duplicate id", `[{"id": 1, "title": "x"}, {"id": 1, "title": "y"}]`, domainerrors.CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.code, domainErr.Code)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`{"movies": [`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode fixtures")
}

func TestDefault(t *testing.T) {
	c := Default(nil)

	assert.Empty(t, c.Path())
	assert.GreaterOrEqual(t, c.Len(), 20)

	m, ok := c.Find(13)
	require.True(t, ok)
	assert.Equal(t, "Forrest Gump", m.Title)
	assert.Contains(t, m.GenreNames(), "Comedy")

	for _, m := range c.Movies() {
		assert.NotEmpty(t, m.Genres, "movie %d has no genres", m.ID)
	}

	assert.ErrorIs(t, c.Reload(), ErrNoFile)
	assert.ErrorIs(t, c.Watch(context.Background(), 0), ErrNoFile)
	assert.NoError(t, c.Close())
}

func TestCatalog_MoviesReturnsCopy(t *testing.T) {
	c := Default(nil)

	movies := c.Movies()
	movies[0].Title = "changed"

	assert.NotEqual(t, "changed", c.Movies()[0].Title)
}

func writeCatalog(t *testing.T, path string, titles ...string) {
	t.Helper()

	data := "["
	for i, title := range titles {
		if i > 0 {
			data += ","
		}
		data += `{"id": ` + strconv.Itoa(i+1) + `, "title": "` + title + `", "genre_ids": [35]}`
	}
	data += "]"

	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movies.json")
	writeCatalog(t, path, "One", "Two")

	c, err := Open(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, c.Path())
	assert.Equal(t, 2, c.Len())
	assert.False(t, c.LoadedAt().IsZero())
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCatalog_ReloadKeepsCatalogOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movies.json")
	writeCatalog(t, path, "One")

	c, err := Open(path, nil)
	require.NoError(t, err)

	var calls atomic.Int32
	c.OnReload(func([]domain.Movie) { calls.Add(1) })

	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	require.Error(t, c.Reload())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int32(0), calls.Load())

	writeCatalog(t, path, "One", "Two", "Three")
	require.NoError(t, c.Reload())
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, int32(1), calls.Load())
}

func TestCatalog_WatchReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movies.json")
	writeCatalog(t, path, "One")

	c, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	reloaded := make(chan []domain.Movie, 4)
	c.OnReload(func(movies []domain.Movie) { reloaded <- movies })

	require.NoError(t, c.Watch(context.Background(), 50*time.Millisecond))
	assert.ErrorIs(t, c.Watch(context.Background(), 0), ErrAlreadyWatching)

	writeCatalog(t, path, "One", "Two")

	select {
	case movies := <-reloaded:
		assert.Len(t, movies, 2)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
	assert.Equal(t, 2, c.Len())
}

func TestCatalog_WatchIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movies.json")
	writeCatalog(t, path, "One")

	c, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	var calls atomic.Int32
	c.OnReload(func([]domain.Movie) { calls.Add(1) })
	require.NoError(t, c.Watch(context.Background(), 20*time.Millisecond))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("[]"), 0o644))
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, int32(0), calls.Load())
}

func TestCatalog_CloseStopsWatching(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movies.json")
	writeCatalog(t, path, "One")

	c, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, c.Watch(context.Background(), 20*time.Millisecond))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	writeCatalog(t, path, "One", "Two")
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, c.Len())
}

func TestCatalog_WatchEndsWithContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movies.json")
	writeCatalog(t, path, "One")

	c, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Watch(ctx, 20*time.Millisecond))
	cancel()

	// Once the first watch has wound down a new one can start.
	require.Eventually(t, func() bool {
		return c.Watch(context.Background(), 20*time.Millisecond) == nil
	}, 2*time.Second, 10*time.Millisecond)

	reloaded := make(chan []domain.Movie, 4)
	c.OnReload(func(movies []domain.Movie) { reloaded <- movies })
	writeCatalog(t, path, "One", "Two")

	select {
	case movies := <-reloaded:
		assert.Len(t, movies, 2)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}
