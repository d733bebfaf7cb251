package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cinemood/cinemood-server/internal/domain"
	"github.com/cinemood/cinemood-server/internal/emotion"
	"github.com/cinemood/cinemood-server/internal/errors"
	"github.com/cinemood/cinemood-server/internal/id"
	"github.com/cinemood/cinemood-server/internal/inference"
	"github.com/cinemood/cinemood-server/internal/metrics"
	"github.com/cinemood/cinemood-server/internal/recommend"
)

// Fallback reasons reported when detection could not be used.
const (
	FallbackDetectorDisabled    = "detector_disabled"
	FallbackDetectorUnavailable = "detector_unavailable"
)

// Detector classifies the emotion on a face.
type Detector interface {
	Enabled() bool
	Detect(ctx context.Context, image string) (*inference.Detection, error)
}

// Recommendation is one scored selection for an emotion.
type Recommendation struct {
	ID             string               `json:"id"`
	Emotion        emotion.Emotion      `json:"emotion"`
	Badge          emotion.Badge        `json:"badge"`
	Movies         []domain.Movie       `json:"movies"`
	Source         string               `json:"source"`
	CandidateCount int                  `json:"candidate_count"`
	Detection      *inference.Detection `json:"detection,omitempty"`
	Fallback       bool                 `json:"fallback"`
	FallbackReason string               `json:"fallback_reason,omitempty"`
	GeneratedAt    time.Time            `json:"generated_at"`
}

// RecommendationService turns emotions, or faces, into movie selections.
type RecommendationService struct {
	scorer   *recommend.Scorer
	catalog  *CatalogService
	detector Detector
	logger   *slog.Logger
	now      func() time.Time
}

// NewRecommendationService creates a recommendation service. detector may be
// nil, in which case every detection falls back to neutral.
func NewRecommendationService(scorer *recommend.Scorer, catalog *CatalogService, detector Detector, logger *slog.Logger) *RecommendationService {
	if scorer == nil {
		scorer = recommend.New()
	}
	return &RecommendationService{
		scorer:   scorer,
		catalog:  catalog,
		detector: detector,
		logger:   logger,
		now:      time.Now,
	}
}

// Recommend ranks caller-supplied movies for an emotion name.
func (s *RecommendationService) Recommend(ctx context.Context, rawEmotion string, items []domain.Movie) (*Recommendation, error) {
	e, err := emotion.Parse(rawEmotion)
	if err != nil {
		return nil, err
	}
	return s.recommend(ctx, e, items, SourceRequest)
}

// RecommendFromCatalog ranks the candidate pool for an emotion name.
func (s *RecommendationService) RecommendFromCatalog(ctx context.Context, rawEmotion string) (*Recommendation, error) {
	e, err := emotion.Parse(rawEmotion)
	if err != nil {
		return nil, err
	}
	return s.fromCatalog(ctx, e)
}

// DetectAndRecommend classifies the face in image and ranks the candidate
// pool for it. A detector that is disabled or failing yields a neutral
// selection flagged as a fallback; a bad image is the caller's error.
func (s *RecommendationService) DetectAndRecommend(ctx context.Context, image string) (*Recommendation, error) {
	detection, reason, err := s.detect(ctx, image)
	if err != nil {
		return nil, err
	}

	rec, err := s.fromCatalog(ctx, detection.Emotion)
	if err != nil {
		return nil, err
	}

	rec.Detection = detection
	rec.Fallback = reason != ""
	rec.FallbackReason = reason
	metrics.RecordDetection(detection.Emotion.String(), rec.Fallback)

	return rec, nil
}

// detect returns the detection, or a neutral one with the fallback reason.
func (s *RecommendationService) detect(ctx context.Context, image string) (*inference.Detection, string, error) {
	neutral := &inference.Detection{Emotion: emotion.Neutral}

	if s.detector == nil || !s.detector.Enabled() {
		if strings.TrimSpace(image) == "" {
			return nil, "", errors.InvalidArgument("image is required")
		}
		return neutral, FallbackDetectorDisabled, nil
	}

	detection, err := s.detector.Detect(ctx, image)
	switch {
	case err == nil:
		return detection, "", nil
	case isImageError(err):
		return nil, "", errors.Wrap(err, errors.CodeInvalidArgument, "invalid image")
	case stderrors.Is(err, context.Canceled):
		return nil, "", err
	case stderrors.Is(err, inference.ErrDisabled):
		return neutral, FallbackDetectorDisabled, nil
	default:
		s.logger.Warn("emotion detection failed, falling back to neutral", "error", err)
		return neutral, FallbackDetectorUnavailable, nil
	}
}

func (s *RecommendationService) fromCatalog(ctx context.Context, e emotion.Emotion) (*Recommendation, error) {
	pool, err := s.catalog.CandidatePool(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidate pool: %w", err)
	}
	return s.recommend(ctx, e, pool.Movies, pool.Source)
}

func (s *RecommendationService) recommend(ctx context.Context, e emotion.Emotion, items []domain.Movie, source string) (*Recommendation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	movies, err := s.scorer.Recommend(items, e)
	if err != nil {
		return nil, err
	}

	recID, err := id.Recommendation()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate recommendation id")
	}

	metrics.RecordRecommendation(e.String(), source, len(movies))
	s.logger.Debug("recommendations ready",
		"id", recID,
		"emotion", e,
		"source", source,
		"candidates", len(items),
		"results", len(movies),
	)

	return &Recommendation{
		ID:             recID,
		Emotion:        e,
		Badge:          emotion.Describe(e),
		Movies:         movies,
		Source:         source,
		CandidateCount: len(items),
		GeneratedAt:    s.now().UTC(),
	}, nil
}
