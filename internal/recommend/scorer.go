// Package recommend ranks catalog movies for a detected emotion.
//
// Ranking happens in two steps. Rank selects and orders the best matches
// deterministically; Shuffle randomises the presentation order of that
// selection. Recommend runs both.
package recommend

import (
	"cmp"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/cinemood/cinemood-server/internal/domain"
	"github.com/cinemood/cinemood-server/internal/emotion"
	"github.com/cinemood/cinemood-server/internal/genre"
)

// Selection limits.
const (
	// MaxResults caps the number of recommendations returned.
	MaxResults = 20
	// RelevanceFloor is the score an item must exceed to be recommended
	// for a non-neutral emotion.
	RelevanceFloor = 0.3
)

// Blend weights for the final score. They sum to 1.
const (
	GenreBlend   = 0.6
	QualityBlend = 0.25
	RecencyBlend = 0.15
)

const (
	maxQuality          = 10.0
	recencyHorizonYears = 50.0
)

// genreWeights holds each emotion's weights keyed by canonical genre slug.
// Built once in init and only read afterwards.
var genreWeights map[emotion.Emotion]map[string]float64

func init() {
	if sum := GenreBlend + QualityBlend + RecencyBlend; math.Abs(sum-1) > 1e-9 {
		panic(fmt.Sprintf("recommend: blend weights sum to %v, want 1", sum))
	}

	genreWeights = make(map[emotion.Emotion]map[string]float64)
	for _, e := range emotion.All() {
		row := emotion.Weights(e)
		bySlug := make(map[string]float64, len(row))
		for _, gw := range row {
			bySlug[genre.Canonical(gw.Genre)] = gw.Weight
		}
		genreWeights[e] = bySlug
	}
}

// Shuffler permutes n elements through swap, like rand.Shuffle.
type Shuffler func(n int, swap func(i, j int))

// Scorer ranks movies for an emotion. The zero value is not usable; call New.
// A Scorer keeps no state between calls and is safe for concurrent use as
// long as its Shuffler and clock are.
type Scorer struct {
	shuffle Shuffler
	now     func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithShuffler replaces the random source used for presentation order.
func WithShuffler(fn Shuffler) Option {
	return func(s *Scorer) {
		if fn != nil {
			s.shuffle = fn
		}
	}
}

// WithClock sets the clock used to compute recency.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Scorer backed by math/rand/v2 and the wall clock.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		shuffle: rand.Shuffle,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var defaultScorer = New()

// Recommend ranks items for e with the default Scorer.
func Recommend(items []domain.Movie, e emotion.Emotion) ([]domain.Movie, error) {
	return defaultScorer.Recommend(items, e)
}

// Recommend returns up to MaxResults movies from items suited to e, in
// random order. An empty input yields an empty result.
func (s *Scorer) Recommend(items []domain.Movie, e emotion.Emotion) ([]domain.Movie, error) {
	ranked, err := s.Rank(items, e)
	if err != nil {
		return nil, err
	}
	s.Shuffle(ranked)

	out := make([]domain.Movie, len(ranked))
	for i := range ranked {
		out[i] = ranked[i].Movie
	}
	return out, nil
}

// Rank selects up to MaxResults movies for e, best first.
//
// For Neutral the selection is the highest rated movies with no genre
// weighting. For every other emotion movies are scored, those at or below
// RelevanceFloor are dropped and the rest are ordered by score. Ties keep
// input order. Repeated IDs after the first are ignored.
func (s *Scorer) Rank(items []domain.Movie, e emotion.Emotion) ([]domain.ScoredMovie, error) {
	if err := emotion.Check(e); err != nil {
		return nil, err
	}

	candidates := dedupe(items)
	if e == emotion.Neutral {
		return rankByQuality(candidates), nil
	}

	year := s.now().Year()
	scored := make([]domain.ScoredMovie, 0, len(candidates))
	for i := range candidates {
		sm := score(&candidates[i], e, year)
		if sm.Score > RelevanceFloor {
			scored = append(scored, sm)
		}
	}

	slices.SortStableFunc(scored, func(a, b domain.ScoredMovie) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return truncate(scored), nil
}

// Shuffle randomises the order of ranked in place.
func (s *Scorer) Shuffle(ranked []domain.ScoredMovie) {
	s.shuffle(len(ranked), func(i, j int) {
		ranked[i], ranked[j] = ranked[j], ranked[i]
	})
}

// Score computes the relevance of a single movie for e.
// Neutral scores are the quality term alone.
func (s *Scorer) Score(m domain.Movie, e emotion.Emotion) (domain.ScoredMovie, error) {
	if err := emotion.Check(e); err != nil {
		return domain.ScoredMovie{}, err
	}
	if e == emotion.Neutral {
		q := quality(m.VoteAverage)
		return domain.ScoredMovie{Movie: m, Score: q, Quality: q}, nil
	}
	return score(&m, e, s.now().Year()), nil
}

func score(m *domain.Movie, e emotion.Emotion, currentYear int) domain.ScoredMovie {
	g := genreScore(m.Genres, genreWeights[e])
	q := quality(m.VoteAverage)
	r := recency(m, currentYear)

	return domain.ScoredMovie{
		Movie:   *m,
		Score:   GenreBlend*g + QualityBlend*q + RecencyBlend*r,
		Genre:   g,
		Quality: q,
		Recency: r,
	}
}

// genreScore is the weighted-average match strength of a movie's genres.
// Each matching tag contributes its weight to both sums, duplicates
// included, so any match saturates at 1 and no match scores 0.
func genreScore(genres []domain.Genre, weights map[string]float64) float64 {
	var matched, total float64
	for _, g := range genres {
		w, ok := weights[genre.Canonical(g.Name)]
		if !ok {
			continue
		}
		matched += w
		total += w
	}
	if total == 0 {
		return 0
	}
	return matched / total
}

func quality(voteAverage float64) float64 {
	return clamp01(voteAverage / maxQuality)
}

// recency is 1 for this year's releases and falls linearly to 0 at fifty
// years old. Unknown dates score 0; future dates count as this year.
func recency(m *domain.Movie, currentYear int) float64 {
	year, ok := m.ReleaseYear()
	if !ok {
		return 0
	}
	return clamp01(1 - float64(currentYear-year)/recencyHorizonYears)
}

func rankByQuality(items []domain.Movie) []domain.ScoredMovie {
	scored := make([]domain.ScoredMovie, len(items))
	for i := range items {
		q := quality(items[i].VoteAverage)
		scored[i] = domain.ScoredMovie{Movie: items[i], Score: q, Quality: q}
	}
	slices.SortStableFunc(scored, func(a, b domain.ScoredMovie) int {
		return cmp.Compare(b.Movie.VoteAverage, a.Movie.VoteAverage)
	})
	return truncate(scored)
}

func truncate(scored []domain.ScoredMovie) []domain.ScoredMovie {
	if len(scored) > MaxResults {
		scored = scored[:MaxResults]
	}
	return slices.Clip(scored)
}

// dedupe drops repeated non-zero IDs, keeping the first occurrence.
func dedupe(items []domain.Movie) []domain.Movie {
	seen := make(map[int]struct{}, len(items))
	out := make([]domain.Movie, 0, len(items))
	for _, m := range items {
		if m.ID != 0 {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
		}
		out = append(out, m)
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
