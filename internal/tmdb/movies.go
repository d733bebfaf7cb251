package tmdb

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/cinemood/cinemood-server/internal/domain"
	"github.com/cinemood/cinemood-server/internal/genre"
)

const (
	maxCast      = 10
	maxGallery   = 10
	maxReviews   = 10
	appendFields = "credits,videos,images,reviews"
)

// ListCategory fetches one page of a curated list. Pages start at 1.
func (c *Client) ListCategory(ctx context.Context, category Category, page int) (*Page, error) {
	if !category.Valid() {
		return nil, wrapError("list", string(category), ErrInvalidCategory)
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(clampPage(page)))
	if c.cfg.Region != "" && category != CategoryTrending {
		query.Set("region", c.cfg.Region)
	}

	body, err := c.get(ctx, string(category), category.path(), query)
	if err != nil {
		return nil, wrapError("list", string(category), err)
	}

	result, err := c.parseList(ctx, body)
	if err != nil {
		return nil, wrapError("list", string(category), err)
	}
	return result, nil
}

// Search finds movies by title.
func (c *Client) Search(ctx context.Context, text string, page int) (*Page, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return &Page{Movies: []domain.Movie{}, Page: 1}, nil
	}

	query := url.Values{}
	query.Set("query", text)
	query.Set("page", strconv.Itoa(clampPage(page)))
	query.Set("include_adult", "false")
	if c.cfg.Region != "" {
		query.Set("region", c.cfg.Region)
	}

	body, err := c.get(ctx, "search", "/search/movie", query)
	if err != nil {
		return nil, wrapError("search", text, err)
	}

	result, err := c.parseList(ctx, body)
	if err != nil {
		return nil, wrapError("search", text, err)
	}
	return result, nil
}

// GetMovie fetches a movie with credits, trailers, gallery and reviews.
func (c *Client) GetMovie(ctx context.Context, id int) (*domain.MovieDetails, error) {
	subject := strconv.Itoa(id)
	if id <= 0 {
		return nil, wrapError("getMovie", subject, ErrInvalidID)
	}

	query := url.Values{}
	query.Set("append_to_response", appendFields)
	query.Set("include_image_language", "en,null")

	body, err := c.get(ctx, "movie", "/movie/"+subject, query)
	if err != nil {
		return nil, wrapError("getMovie", subject, err)
	}

	var raw rawMovieDetails
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, wrapError("getMovie", subject, fmt.Errorf("parse response: %w", err))
	}

	return c.toDetails(&raw), nil
}

// Genres fetches the provider's movie genre list and makes it the
// taxonomy used for list results.
func (c *Client) Genres(ctx context.Context) ([]domain.Genre, error) {
	body, err := c.get(ctx, "genres", "/genre/movie/list", nil)
	if err != nil {
		return nil, wrapError("genres", "", err)
	}

	var raw rawGenreList
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, wrapError("genres", "", fmt.Errorf("parse response: %w", err))
	}

	c.genresMu.Lock()
	c.genres = genre.NewTaxonomy(raw.Genres)
	c.fetched = true
	c.genresMu.Unlock()

	return raw.Genres, nil
}

// taxonomy returns the genre taxonomy, fetching it once on first use.
// A failed fetch keeps the built-in list and is retried next time.
func (c *Client) taxonomy(ctx context.Context) *genre.Taxonomy {
	c.genresMu.Lock()
	fetched, tax := c.fetched, c.genres
	c.genresMu.Unlock()
	if fetched {
		return tax
	}

	if _, err := c.Genres(ctx); err != nil {
		c.logger.Warn("using built-in genre list", "error", err)
		return tax
	}

	c.genresMu.Lock()
	defer c.genresMu.Unlock()
	return c.genres
}

func (c *Client) parseList(ctx context.Context, body []byte) (*Page, error) {
	var raw rawListResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	tax := c.taxonomy(ctx)
	movies := make([]domain.Movie, 0, len(raw.Results))
	for i := range raw.Results {
		item := &raw.Results[i]
		if item.MediaType != "" && item.MediaType != "movie" {
			continue
		}
		m := c.toMovie(item)
		m.Genres = tax.Resolve(item.GenreIDs)
		movies = append(movies, m)
	}

	return &Page{
		Movies:       movies,
		Page:         raw.Page,
		TotalPages:   raw.TotalPages,
		TotalResults: raw.TotalResults,
	}, nil
}

func (c *Client) toMovie(item *rawListItem) domain.Movie {
	return domain.Movie{
		ID:               item.ID,
		Title:            item.Title,
		OriginalTitle:    item.OriginalTitle,
		Overview:         item.Overview,
		ReleaseDate:      item.ReleaseDate,
		PosterPath:       item.PosterPath,
		BackdropPath:     item.BackdropPath,
		PosterURL:        c.ImageURL(item.PosterPath, PosterSize),
		BackdropURL:      c.ImageURL(item.BackdropPath, BackdropSize),
		VoteAverage:      item.VoteAverage,
		VoteCount:        item.VoteCount,
		Popularity:       item.Popularity,
		OriginalLanguage: item.OriginalLanguage,
		Genres:           []domain.Genre{},
	}
}

func (c *Client) toDetails(raw *rawMovieDetails) *domain.MovieDetails {
	m := c.toMovie(&raw.rawListItem)
	m.Runtime = raw.Runtime
	if raw.Genres != nil {
		m.Genres = raw.Genres
	}

	details := &domain.MovieDetails{
		Movie:    m,
		Tagline:  raw.Tagline,
		Budget:   raw.Budget,
		Revenue:  raw.Revenue,
		Director: director(raw.Credits.Crew),
		Cast:     c.topCast(raw.Credits.Cast),
		Trailers: trailers(raw.Videos.Results),
		Images:   c.gallery(raw.Images.Backdrops),
		Reviews:  reviews(raw.Reviews.Results),
	}
	return details
}

func director(crew []rawCrew) string {
	for _, member := range crew {
		if member.Job == "Director" {
			return member.Name
		}
	}
	return ""
}

func (c *Client) topCast(cast []rawCast) []domain.CastMember {
	ordered := slices.Clone(cast)
	slices.SortStableFunc(ordered, func(a, b rawCast) int { return cmp.Compare(a.Order, b.Order) })
	if len(ordered) > maxCast {
		ordered = ordered[:maxCast]
	}

	out := make([]domain.CastMember, 0, len(ordered))
	for _, member := range ordered {
		out = append(out, domain.CastMember{
			ID:         member.ID,
			Name:       member.Name,
			Character:  member.Character,
			ProfileURL: c.ImageURL(member.ProfilePath, "w185"),
		})
	}
	return out
}

// trailers keeps YouTube trailers and teasers.
func trailers(videos []domain.Video) []domain.Video {
	out := make([]domain.Video, 0, len(videos))
	for _, v := range videos {
		if v.Site == "YouTube" && (v.Type == "Trailer" || v.Type == "Teaser") {
			out = append(out, v)
		}
	}
	return out
}

// gallery returns up to maxGallery backdrop URLs, best voted first.
func (c *Client) gallery(images []rawImage) []string {
	ordered := slices.Clone(images)
	slices.SortStableFunc(ordered, func(a, b rawImage) int { return cmp.Compare(b.VoteAverage, a.VoteAverage) })

	out := make([]string, 0, min(len(ordered), maxGallery))
	for _, img := range ordered {
		if len(out) == maxGallery {
			break
		}
		if u := c.ImageURL(img.FilePath, BackdropSize); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func reviews(raw []rawReview) []domain.Review {
	if len(raw) > maxReviews {
		raw = raw[:maxReviews]
	}
	out := make([]domain.Review, 0, len(raw))
	for _, r := range raw {
		out = append(out, domain.Review{
			ID:        r.ID,
			Author:    r.Author,
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
			Rating:    r.AuthorDetails.Rating,
		})
	}
	return out
}

func clampPage(page int) int {
	return max(1, min(page, maxPage))
}
