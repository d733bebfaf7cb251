package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cinemood/cinemood-server/internal/domain"
)

func (s *Server) registerRecommendationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "recommendMovies",
		Method:      http.MethodPost,
		Path:        "/api/v1/recommendations",
		Summary:     "Recommend from supplied movies",
		Description: "Ranks the supplied movies for an emotion and returns up to 20, shuffled",
		Tags:        []string{"Recommendations"},
	}, s.handleRecommend)

	huma.Register(s.api, huma.Operation{
		OperationID: "recommendFromCatalog",
		Method:      http.MethodGet,
		Path:        "/api/v1/recommendations/{emotion}",
		Summary:     "Recommend from the catalog",
		Description: "Ranks the candidate pool for an emotion and returns up to 20, shuffled",
		Tags:        []string{"Recommendations"},
	}, s.handleRecommendFromCatalog)
}

// === DTOs ===

// GenreInput is a genre on a supplied movie.
type GenreInput struct {
	ID   int    `json:"id,omitempty" doc:"TMDB genre ID"`
	Name string `json:"name" validate:"required" doc:"Genre display name"`
}

// MovieInput is a candidate movie supplied by the caller.
type MovieInput struct {
	ID          int          `json:"id" doc:"TMDB movie ID"`
	Title       string       `json:"title" validate:"required" doc:"Movie title"`
	Overview    string       `json:"overview,omitempty" doc:"Plot summary"`
	ReleaseDate string       `json:"release_date,omitempty" doc:"Release date, YYYY-MM-DD"`
	PosterPath  string       `json:"poster_path,omitempty" doc:"TMDB poster path"`
	PosterURL   string       `json:"poster_url,omitempty" doc:"Absolute poster URL"`
	VoteAverage float64      `json:"vote_average,omitempty" doc:"Average rating, 0-10"`
	VoteCount   int          `json:"vote_count,omitempty" doc:"Number of votes"`
	Popularity  float64      `json:"popularity,omitempty" doc:"TMDB popularity"`
	Genres      []GenreInput `json:"genres,omitempty" validate:"dive" doc:"Genres"`
}

// RecommendRequest is the request body for ranking supplied movies.
type RecommendRequest struct {
	Emotion string       `json:"emotion" validate:"required,emotion" doc:"happy, sad, angry, surprised, or neutral"`
	Items   []MovieInput `json:"items" validate:"max=1000,dive" doc:"Candidate movies"`
}

// RecommendInput wraps the recommendation request for Huma.
type RecommendInput struct {
	Body RecommendRequest
}

// RecommendFromCatalogInput selects the emotion to rank the pool for.
type RecommendFromCatalogInput struct {
	Emotion string `path:"emotion" doc:"happy, sad, angry, surprised, or neutral"`
}

// === Handlers ===

func (s *Server) handleRecommend(ctx context.Context, input *RecommendInput) (*RecommendationOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	rec, err := s.services.Recommendations.Recommend(ctx, input.Body.Emotion, toMovies(input.Body.Items))
	if err != nil {
		return nil, err
	}
	return &RecommendationOutput{Body: rec}, nil
}

func (s *Server) handleRecommendFromCatalog(ctx context.Context, input *RecommendFromCatalogInput) (*RecommendationOutput, error) {
	rec, err := s.services.Recommendations.RecommendFromCatalog(ctx, input.Emotion)
	if err != nil {
		return nil, err
	}
	return &RecommendationOutput{Body: rec}, nil
}

func toMovies(items []MovieInput) []domain.Movie {
	movies := make([]domain.Movie, len(items))
	for i, item := range items {
		genres := make([]domain.Genre, len(item.Genres))
		for j, g := range item.Genres {
			genres[j] = domain.Genre{ID: g.ID, Name: g.Name}
		}
		movies[i] = domain.Movie{
			ID:          item.ID,
			Title:       item.Title,
			Overview:    item.Overview,
			ReleaseDate: item.ReleaseDate,
			PosterPath:  item.PosterPath,
			PosterURL:   item.PosterURL,
			VoteAverage: item.VoteAverage,
			VoteCount:   item.VoteCount,
			Popularity:  item.Popularity,
			Genres:      genres,
		}
	}
	return movies
}
