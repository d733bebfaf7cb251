package service

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinemood/cinemood-server/internal/domain"
	"github.com/cinemood/cinemood-server/internal/emotion"
	"github.com/cinemood/cinemood-server/internal/errors"
	"github.com/cinemood/cinemood-server/internal/inference"
	"github.com/cinemood/cinemood-server/internal/metrics"
)

func TestRecommend_InvalidEmotion(t *testing.T) {
	svc := newTestEnv(t, nil, nil).recommendations(nil)

	_, err := svc.Recommend(context.Background(), "bored", nil)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestRecommend_CallerItems(t *testing.T) {
	svc := newTestEnv(t, nil, nil).recommendations(nil)

	items := []domain.Movie{
		movie(1, "Laugh", 8, "Comedy"),
		movie(2, "Scream", 2, "Horror"),
		movie(3, "Play", 7, "Family", "Animation"),
	}

	before := testutil.ToFloat64(metrics.RecommendationsTotal.WithLabelValues("happy", SourceRequest))

	rec, err := svc.Recommend(context.Background(), " HAPPY ", items)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rec.ID, "rec-"))
	assert.Equal(t, emotion.Happy, rec.Emotion)
	assert.Equal(t, emotion.Badge{Label: "Happy", Color: "green"}, rec.Badge)
	assert.Equal(t, SourceRequest, rec.Source)
	assert.Equal(t, 3, rec.CandidateCount)
	assert.ElementsMatch(t, []int{1, 3}, ids(rec.Movies))
	assert.False(t, rec.Fallback)
	assert.Nil(t, rec.Detection)
	assert.False(t, rec.GeneratedAt.IsZero())

	after := testutil.ToFloat64(metrics.RecommendationsTotal.WithLabelValues("happy", SourceRequest))
	assert.InDelta(t, 1, after-before, 0.0001)
}

func TestRecommend_EmptyItems(t *testing.T) {
	svc := newTestEnv(t, nil, nil).recommendations(nil)

	rec, err := svc.Recommend(context.Background(), "sad", nil)
	require.NoError(t, err)

	assert.NotNil(t, rec.Movies)
	assert.Empty(t, rec.Movies)
}

func TestRecommend_CanceledContext(t *testing.T) {
	svc := newTestEnv(t, nil, nil).recommendations(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Recommend(ctx, "sad", []domain.Movie{movie(1, "A", 8, "Drama")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecommendFromCatalog(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	svc := env.recommendations(nil)

	rec, err := svc.RecommendFromCatalog(context.Background(), "neutral")
	require.NoError(t, err)

	assert.Equal(t, SourceFixtures, rec.Source)
	assert.Equal(t, env.fixtures.Len(), rec.CandidateCount)
	assert.Len(t, rec.Movies, 20)

	_, err = svc.RecommendFromCatalog(context.Background(), "")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestRecommendFromCatalog_EveryEmotionFindsMatches(t *testing.T) {
	svc := newTestEnv(t, nil, nil).recommendations(nil)

	for _, e := range emotion.All() {
		t.Run(e.String(), func(t *testing.T) {
			rec, err := svc.RecommendFromCatalog(context.Background(), e.String())
			require.NoError(t, err)
			assert.NotEmpty(t, rec.Movies)
			assert.LessOrEqual(t, len(rec.Movies), 20)
		})
	}
}

func TestDetectAndRecommend(t *testing.T) {
	const image = "aGVsbG8="

	t.Run("detected", func(t *testing.T) {
		detector := &fakeDetector{
			enabled:   true,
			detection: &inference.Detection{Emotion: emotion.Sad, Label: "fear", Confidence: 0.9},
		}
		svc := newTestEnv(t, nil, nil).recommendations(detector)

		before := testutil.ToFloat64(metrics.EmotionDetections.WithLabelValues("sad", "detected"))

		rec, err := svc.DetectAndRecommend(context.Background(), image)
		require.NoError(t, err)

		assert.Equal(t, emotion.Sad, rec.Emotion)
		assert.False(t, rec.Fallback)
		assert.Empty(t, rec.FallbackReason)
		require.NotNil(t, rec.Detection)
		assert.Equal(t, "fear", rec.Detection.Label)
		assert.NotEmpty(t, rec.Movies)

		after := testutil.ToFloat64(metrics.EmotionDetections.WithLabelValues("sad", "detected"))
		assert.InDelta(t, 1, after-before, 0.0001)
	})

	t.Run("detector failing", func(t *testing.T) {
		detector := &fakeDetector{enabled: true, err: inference.ErrServer}
		svc := newTestEnv(t, nil, nil).recommendations(detector)

		rec, err := svc.DetectAndRecommend(context.Background(), image)
		require.NoError(t, err)

		assert.Equal(t, emotion.Neutral, rec.Emotion)
		assert.True(t, rec.Fallback)
		assert.Equal(t, FallbackDetectorUnavailable, rec.FallbackReason)
		assert.Len(t, rec.Movies, 20)
	})

	t.Run("no detector", func(t *testing.T) {
		svc := newTestEnv(t, nil, nil).recommendations(nil)

		rec, err := svc.DetectAndRecommend(context.Background(), image)
		require.NoError(t, err)

		assert.Equal(t, emotion.Neutral, rec.Emotion)
		assert.True(t, rec.Fallback)
		assert.Equal(t, FallbackDetectorDisabled, rec.FallbackReason)
	})

	t.Run("disabled detector still needs an image", func(t *testing.T) {
		svc := newTestEnv(t, nil, nil).recommendations(&fakeDetector{})

		_, err := svc.DetectAndRecommend(context.Background(), "  ")
		assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	})

	t.Run("bad image", func(t *testing.T) {
		detector := &fakeDetector{enabled: true, err: inference.ErrInvalidImage}
		svc := newTestEnv(t, nil, nil).recommendations(detector)

		_, err := svc.DetectAndRecommend(context.Background(), "%%%")
		assert.ErrorIs(t, err, errors.ErrInvalidArgument)
		assert.ErrorIs(t, err, inference.ErrInvalidImage)
	})
}
