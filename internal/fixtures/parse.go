// Package fixtures serves a movie catalog from a JSON file so the service
// can recommend without a TMDB key. A built-in catalog ships with the binary;
// a file on disk replaces it and is reloaded when it changes.
package fixtures

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cinemood/cinemood-server/internal/domain"
	"github.com/cinemood/cinemood-server/internal/errors"
	"github.com/cinemood/cinemood-server/internal/genre"
	"github.com/cinemood/cinemood-server/internal/validation"
)

// posterBaseURL prefixes poster_path when a fixture gives no poster_url.
const posterBaseURL = "https://image.tmdb.org/t/p/w500"

//go:embed movies.json
var builtin []byte

// file is the on-disk layout. A bare array of movies is accepted too.
type file struct {
	Genres []domain.Genre `json:"genres"`
	Movies []movie        `json:"movies" validate:"dive"`
}

// movie is a catalog entry. Genres may be given as objects, as TMDB genre
// IDs, or both; objects win.
type movie struct {
	ID               int            `json:"id" validate:"gt=0"`
	Title            string         `json:"title" validate:"required"`
	OriginalTitle    string         `json:"original_title"`
	Overview         string         `json:"overview"`
	ReleaseDate      string         `json:"release_date"`
	PosterPath       string         `json:"poster_path"`
	PosterURL        string         `json:"poster_url" validate:"omitempty,url"`
	BackdropPath     string         `json:"backdrop_path"`
	VoteAverage      float64        `json:"vote_average" validate:"gte=0,lte=10"`
	VoteCount        int            `json:"vote_count" validate:"gte=0"`
	Popularity       float64        `json:"popularity" validate:"gte=0"`
	OriginalLanguage string         `json:"original_language"`
	Runtime          int            `json:"runtime" validate:"gte=0"`
	GenreIDs         []int          `json:"genre_ids"`
	Genres           []domain.Genre `json:"genres"`
}

var validate = validation.New()

// Parse decodes and validates a fixture catalog. Movie IDs must be unique.
func Parse(data []byte) ([]domain.Movie, error) {
	var f file

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &f.Movies); err != nil {
			return nil, fmt.Errorf("decode fixtures: %w", err)
		}
	} else if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	if err := validate.Validate(f); err != nil {
		return nil, err
	}

	taxonomy := genre.DefaultTaxonomy()
	if len(f.Genres) > 0 {
		taxonomy = genre.NewTaxonomy(f.Genres)
	}

	movies := make([]domain.Movie, 0, len(f.Movies))
	seen := make(map[int]struct{}, len(f.Movies))
	for i := range f.Movies {
		m := &f.Movies[i]
		if _, dup := seen[m.ID]; dup {
			return nil, errors.InvalidArgumentf("duplicate movie id %d in fixtures", m.ID)
		}
		seen[m.ID] = struct{}{}
		movies = append(movies, m.toDomain(taxonomy))
	}

	return movies, nil
}

func (m *movie) toDomain(taxonomy *genre.Taxonomy) domain.Movie {
	genres := m.Genres
	if len(genres) == 0 {
		genres = taxonomy.Resolve(m.GenreIDs)
	}
	if genres == nil {
		genres = []domain.Genre{}
	}

	posterURL := m.PosterURL
	if posterURL == "" && m.PosterPath != "" {
		posterURL = posterBaseURL + "/" + strings.TrimPrefix(m.PosterPath, "/")
	}

	return domain.Movie{
		ID:               m.ID,
		Title:            m.Title,
		OriginalTitle:    m.OriginalTitle,
		Overview:         m.Overview,
		ReleaseDate:      m.ReleaseDate,
		PosterPath:       m.PosterPath,
		BackdropPath:     m.BackdropPath,
		PosterURL:        posterURL,
		VoteAverage:      m.VoteAverage,
		VoteCount:        m.VoteCount,
		Popularity:       m.Popularity,
		OriginalLanguage: m.OriginalLanguage,
		Runtime:          m.Runtime,
		Genres:           genres,
	}
}
