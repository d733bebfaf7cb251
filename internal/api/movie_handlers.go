package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cinemood/cinemood-server/internal/domain"
	domainerrors "github.com/cinemood/cinemood-server/internal/errors"
	"github.com/cinemood/cinemood-server/internal/search"
	"github.com/cinemood/cinemood-server/internal/service"
	"github.com/cinemood/cinemood-server/internal/tmdb"
)

func (s *Server) registerMovieRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchMovies",
		Method:      http.MethodGet,
		Path:        "/api/v1/movies/search",
		Summary:     "Search movies",
		Description: "Full-text search with genre, year and rating filters. Falls back to TMDB when the local index has no match.",
		Tags:        []string{"Movies"},
	}, s.handleSearchMovies)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCategory",
		Method:      http.MethodGet,
		Path:        "/api/v1/movies/category/{category}",
		Summary:     "List a movie category",
		Description: "Returns one page of popular, top_rated, upcoming, now_playing or trending movies",
		Tags:        []string{"Movies"},
	}, s.handleListCategory)

	huma.Register(s.api, huma.Operation{
		OperationID: "getMovie",
		Method:      http.MethodGet,
		Path:        "/api/v1/movies/{id}",
		Summary:     "Get movie details",
		Description: "Returns a movie with cast, trailers, gallery and reviews",
		Tags:        []string{"Movies"},
	}, s.handleGetMovie)
}

// === DTOs ===

// GetMovieInput identifies a movie.
type GetMovieInput struct {
	ID int `path:"id" minimum:"1" doc:"TMDB movie ID"`
}

// MovieDetailsResponse is a movie's full record plus a link to its preferred
// trailer, when one is hosted on YouTube.
type MovieDetailsResponse struct {
	domain.MovieDetails
	TrailerURL string `json:"trailer_url,omitempty" doc:"Watch URL of the preferred trailer"`
}

// MovieDetailsOutput wraps movie details for Huma.
type MovieDetailsOutput struct {
	Body *MovieDetailsResponse
}

// ListCategoryInput selects a category page.
type ListCategoryInput struct {
	Category string `path:"category" doc:"popular, top_rated, upcoming, now_playing, or trending"`
	Page     int    `query:"page" default:"1" minimum:"1" maximum:"500" doc:"Page number"`
}

// CategoryPageOutput wraps a category page for Huma.
type CategoryPageOutput struct {
	Body *tmdb.Page
}

// SearchMoviesInput contains parameters for searching movies.
type SearchMoviesInput struct {
	Query     string  `query:"q" maxLength:"200" doc:"Search text. Omit to browse by filters."`
	Genres    string  `query:"genres" maxLength:"200" doc:"Comma-separated genre names or slugs, any of which may match"`
	MinYear   int     `query:"min_year" minimum:"0" doc:"Earliest release year"`
	MaxYear   int     `query:"max_year" minimum:"0" doc:"Latest release year"`
	MinRating float64 `query:"min_rating" minimum:"0" maximum:"10" doc:"Minimum average rating"`
	Limit     int     `query:"limit" minimum:"0" maximum:"100" doc:"Results per page (default 20)"`
	Offset    int     `query:"offset" minimum:"0" doc:"Pagination offset"`
	Sort      string  `query:"sort" enum:"relevance,rating,year,popularity" default:"relevance" doc:"Sort key"`
	Order     string  `query:"order" enum:"asc,desc" default:"desc" doc:"Sort direction"`
}

// SearchMoviesOutput wraps search results for Huma.
type SearchMoviesOutput struct {
	Body *service.SearchResult
}

// === Handlers ===

func (s *Server) handleGetMovie(ctx context.Context, input *GetMovieInput) (*MovieDetailsOutput, error) {
	details, err := s.services.Catalog.GetMovie(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &MovieDetailsOutput{Body: newMovieDetailsResponse(details)}, nil
}

func newMovieDetailsResponse(d *domain.MovieDetails) *MovieDetailsResponse {
	resp := &MovieDetailsResponse{MovieDetails: *d}
	if trailer := d.PreferredTrailer(); trailer != nil {
		resp.TrailerURL = trailer.WatchURL()
	}
	return resp
}

func (s *Server) handleListCategory(ctx context.Context, input *ListCategoryInput) (*CategoryPageOutput, error) {
	category, err := tmdb.ParseCategory(input.Category)
	if err != nil {
		return nil, domainerrors.InvalidArgumentf("unknown category %q", input.Category).
			WithDetails(map[string]any{"allowed": tmdb.AllCategories()})
	}

	page, err := s.services.Catalog.ListCategory(ctx, category, input.Page)
	if err != nil {
		return nil, err
	}
	return &CategoryPageOutput{Body: page}, nil
}

func (s *Server) handleSearchMovies(ctx context.Context, input *SearchMoviesInput) (*SearchMoviesOutput, error) {
	if input.MinYear > 0 && input.MaxYear > 0 && input.MinYear > input.MaxYear {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"min_year": "must not be after max_year",
		})
	}

	params := search.Params{
		Query:     strings.TrimSpace(input.Query),
		MinYear:   input.MinYear,
		MaxYear:   input.MaxYear,
		MinRating: input.MinRating,
		Limit:     input.Limit,
		Offset:    input.Offset,
		SortBy:    input.Sort,
		SortOrder: input.Order,
	}

	for g := range strings.SplitSeq(input.Genres, ",") {
		if g = strings.TrimSpace(g); g != "" {
			params.Genres = append(params.Genres, g)
		}
	}

	result, err := s.services.Catalog.Search(ctx, params)
	if err != nil {
		s.logger.Error("search failed", "error", err, "query", params.Query)
		return nil, err
	}

	s.logger.Debug("search completed",
		"query", params.Query,
		"source", result.Source,
		"total", result.Total,
		"returned", len(result.Movies),
	)

	return &SearchMoviesOutput{Body: result}, nil
}
