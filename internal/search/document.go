// Package search provides full-text search over the cached movie catalog
// using Bleve, with genre, year and rating filters.
package search

import (
	"strconv"

	"github.com/cinemood/cinemood-server/internal/domain"
	"github.com/cinemood/cinemood-server/internal/genre"
)

// MovieDocument is the indexed form of a movie.
//
// Genre names are kept twice: canonical slugs for exact filtering and
// faceting, and display names so hits can be rendered without a cache read.
type MovieDocument struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	OriginalTitle string   `json:"original_title,omitempty"`
	Overview      string   `json:"overview,omitempty"`
	GenreSlugs    []string `json:"genre_slugs,omitempty"`
	Genres        []string `json:"genres,omitempty"`
	Year          int      `json:"year,omitempty"`
	Rating        float64  `json:"rating"`
	Popularity    float64  `json:"popularity"`
	PosterURL     string   `json:"poster_url,omitempty"`
}

// DocumentID returns the index key for a movie ID.
func DocumentID(movieID int) string {
	return strconv.Itoa(movieID)
}

// NewMovieDocument builds the index document for m.
func NewMovieDocument(m *domain.Movie) *MovieDocument {
	doc := &MovieDocument{
		ID:            DocumentID(m.ID),
		Title:         m.Title,
		OriginalTitle: m.OriginalTitle,
		Overview:      m.Overview,
		Rating:        m.VoteAverage,
		Popularity:    m.Popularity,
		PosterURL:     m.PosterURL,
	}
	if year, ok := m.ReleaseYear(); ok {
		doc.Year = year
	}

	seen := make(map[string]struct{}, len(m.Genres))
	for _, g := range m.Genres {
		slug := genre.Canonical(g.Name)
		if slug == "" {
			continue
		}
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		doc.GenreSlugs = append(doc.GenreSlugs, slug)
		doc.Genres = append(doc.Genres, g.Name)
	}

	return doc
}

// ToMap converts the document to a map keyed by the mapping's field names.
// Empty optional fields are left out so they are not indexed as blanks.
func (d *MovieDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"title":      d.Title,
		"rating":     d.Rating,
		"popularity": d.Popularity,
	}

	if d.OriginalTitle != "" && d.OriginalTitle != d.Title {
		m["original_title"] = d.OriginalTitle
	}
	if d.Overview != "" {
		m["overview"] = d.Overview
	}
	if len(d.GenreSlugs) > 0 {
		m["genre_slugs"] = d.GenreSlugs
		m["genres"] = d.Genres
	}
	if d.Year > 0 {
		m["year"] = d.Year
	}
	if d.PosterURL != "" {
		m["poster_url"] = d.PosterURL
	}

	return m
}
