package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cinemood/cinemood-server/internal/emotion"
	"github.com/cinemood/cinemood-server/internal/service"
)

func (s *Server) registerEmotionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listEmotions",
		Method:      http.MethodGet,
		Path:        "/api/v1/emotions",
		Summary:     "List emotions",
		Description: "Returns the supported emotions with their badge and genre weights",
		Tags:        []string{"Emotions"},
	}, s.handleListEmotions)

	huma.Register(s.api, huma.Operation{
		OperationID:  "detectEmotion",
		Method:       http.MethodPost,
		Path:         "/api/v1/emotions/detect",
		Summary:      "Detect emotion and recommend",
		Description:  "Classifies the face in a captured frame and recommends movies for it. Falls back to neutral when the detector is unavailable.",
		Tags:         []string{"Emotions"},
		MaxBodyBytes: s.opts.DetectMaxBodyBytes,
		Middlewares:  huma.Middlewares{s.rateLimitByIP(s.detectLimiter)},
	}, s.handleDetectEmotion)
}

// === DTOs ===

// EmotionResponse describes one supported emotion.
type EmotionResponse struct {
	Name    string                `json:"name" doc:"Emotion name"`
	Badge   emotion.Badge         `json:"badge" doc:"Display label and color"`
	Weights []emotion.GenreWeight `json:"weights" doc:"Favoured genres, strongest first"`
}

// ListEmotionsOutput wraps the emotion list for Huma.
type ListEmotionsOutput struct {
	Body struct {
		Emotions []EmotionResponse `json:"emotions" doc:"Supported emotions"`
	}
}

// DetectEmotionRequest is the request body for emotion detection.
type DetectEmotionRequest struct {
	Image string `json:"image" validate:"required" doc:"Base64 JPEG or PNG frame, optionally as a data URL"`
}

// DetectEmotionInput wraps the detection request for Huma.
type DetectEmotionInput struct {
	Body DetectEmotionRequest
}

// RecommendationOutput wraps a recommendation for Huma.
type RecommendationOutput struct {
	Body *service.Recommendation
}

// === Handlers ===

func (s *Server) handleListEmotions(_ context.Context, _ *struct{}) (*ListEmotionsOutput, error) {
	out := &ListEmotionsOutput{}
	for _, e := range emotion.All() {
		out.Body.Emotions = append(out.Body.Emotions, EmotionResponse{
			Name:    e.String(),
			Badge:   emotion.Describe(e),
			Weights: emotion.Weights(e),
		})
	}
	return out, nil
}

func (s *Server) handleDetectEmotion(ctx context.Context, input *DetectEmotionInput) (*RecommendationOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	rec, err := s.services.Recommendations.DetectAndRecommend(ctx, input.Body.Image)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("detection served",
		"id", rec.ID,
		"emotion", rec.Emotion,
		"fallback", rec.Fallback,
	)

	return &RecommendationOutput{Body: rec}, nil
}
