// Package tmdb provides a rate-limited client for The Movie Database v3 API.
package tmdb

import (
	"strings"

	"github.com/cinemood/cinemood-server/internal/domain"
)

// Category is a curated movie list.
type Category string

// Supported categories.
const (
	CategoryPopular    Category = "popular"
	CategoryTopRated   Category = "top_rated"
	CategoryUpcoming   Category = "upcoming"
	CategoryNowPlaying Category = "now_playing"
	CategoryTrending   Category = "trending"
)

// AllCategories returns every supported category.
func AllCategories() []Category {
	return []Category{CategoryPopular, CategoryTopRated, CategoryUpcoming, CategoryNowPlaying, CategoryTrending}
}

// ParseCategory accepts the API names plus hyphenated spellings.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !c.Valid() {
		return "", wrapError("list", s, ErrInvalidCategory)
	}
	return c, nil
}

// Valid reports whether c is supported.
func (c Category) Valid() bool {
	switch c {
	case CategoryPopular, CategoryTopRated, CategoryUpcoming, CategoryNowPlaying, CategoryTrending:
		return true
	}
	return false
}

// path returns the API path for the category.
func (c Category) path() string {
	if c == CategoryTrending {
		return "/trending/movie/week"
	}
	return "/movie/" + string(c)
}

// Page is one page of a movie listing.
type Page struct {
	Movies       []domain.Movie `json:"movies"`
	Page         int            `json:"page"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

// Image sizes used when building URLs.
const (
	PosterSize   = "w500"
	BackdropSize = "original"
)

// Raw API response types (internal)

type rawListResponse struct {
	Page         int           `json:"page"`
	Results      []rawListItem `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

type rawListItem struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	Overview         string  `json:"overview"`
	ReleaseDate      string  `json:"release_date"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Popularity       float64 `json:"popularity"`
	OriginalLanguage string  `json:"original_language"`
	GenreIDs         []int   `json:"genre_ids"`
	MediaType        string  `json:"media_type"` // Only on trending
}

type rawGenreList struct {
	Genres []domain.Genre `json:"genres"`
}

type rawMovieDetails struct {
	rawListItem
	Genres  []domain.Genre `json:"genres"`
	Runtime int            `json:"runtime"`
	Tagline string         `json:"tagline"`
	Budget  int64          `json:"budget"`
	Revenue int64          `json:"revenue"`
	Credits rawCredits     `json:"credits"`
	Videos  rawVideos      `json:"videos"`
	Images  rawImages      `json:"images"`
	Reviews rawReviews     `json:"reviews"`
}

type rawCredits struct {
	Cast []rawCast `json:"cast"`
	Crew []rawCrew `json:"crew"`
}

type rawCast struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}

type rawCrew struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Job  string `json:"job"`
}

type rawVideos struct {
	Results []domain.Video `json:"results"`
}

type rawImages struct {
	Backdrops []rawImage `json:"backdrops"`
}

type rawImage struct {
	FilePath    string  `json:"file_path"`
	VoteAverage float64 `json:"vote_average"`
}

type rawReviews struct {
	Results []rawReview `json:"results"`
}

type rawReview struct {
	ID            string `json:"id"`
	Author        string `json:"author"`
	Content       string `json:"content"`
	CreatedAt     string `json:"created_at"`
	AuthorDetails struct {
		Rating *float64 `json:"rating"`
	} `json:"author_details"`
}
