package domain

import (
	"strings"
	"time"
)

// releaseDateLayouts are tried in order when reading a release date.
var releaseDateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01", "2006"}

// Genre is a content category attached to a movie.
// Names are not unique per movie; duplicates are kept as delivered.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Movie is a catalog item as fetched from the metadata provider.
type Movie struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title,omitempty"`
	Overview         string  `json:"overview,omitempty"`
	ReleaseDate      string  `json:"release_date"` // YYYY-MM-DD as delivered by TMDB
	PosterPath       string  `json:"poster_path,omitempty"`
	BackdropPath     string  `json:"backdrop_path,omitempty"`
	PosterURL        string  `json:"poster_url,omitempty"`
	BackdropURL      string  `json:"backdrop_url,omitempty"`
	VoteAverage      float64 `json:"vote_average"` // Quality score, 0-10
	VoteCount        int     `json:"vote_count,omitempty"`
	Popularity       float64 `json:"popularity,omitempty"`
	OriginalLanguage string  `json:"original_language,omitempty"`
	Runtime          int     `json:"runtime,omitempty"` // Minutes
	Genres           []Genre `json:"genres"`
}

// Released parses ReleaseDate. ok is false when the date is missing or unparseable.
func (m *Movie) Released() (t time.Time, ok bool) {
	raw := strings.TrimSpace(m.ReleaseDate)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range releaseDateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// ReleaseYear returns the calendar year of release, if known.
func (m *Movie) ReleaseYear() (int, bool) {
	t, ok := m.Released()
	if !ok {
		return 0, false
	}
	return t.Year(), true
}

// GenreNames returns the genre names in delivery order.
func (m *Movie) GenreNames() []string {
	names := make([]string, 0, len(m.Genres))
	for _, g := range m.Genres {
		names = append(names, g.Name)
	}
	return names
}

// ScoredMovie pairs a movie with its relevance for one emotion query.
// It only lives for the duration of a single ranking call.
type ScoredMovie struct {
	Movie   Movie   `json:"movie"`
	Score   float64 `json:"score"`   // Blended relevance, 0-1
	Genre   float64 `json:"genre"`   // Genre match strength, 0-1
	Quality float64 `json:"quality"` // VoteAverage scaled to 0-1
	Recency float64 `json:"recency"` // 1 for this year, 0 at 50+ years old
}

// CastMember is one credited performer.
type CastMember struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Character  string `json:"character,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
}

// Video is a trailer, teaser or clip hosted on a third-party site.
type Video struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

// WatchURL returns a browser URL for YouTube-hosted videos.
func (v *Video) WatchURL() string {
	if v.Site != "YouTube" || v.Key == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + v.Key
}

// Review is a user review from the metadata provider.
type Review struct {
	ID        string   `json:"id"`
	Author    string   `json:"author"`
	Content   string   `json:"content"`
	CreatedAt string   `json:"created_at"`
	Rating    *float64 `json:"rating,omitempty"`
}

// MovieDetails is the full record shown on a movie's page.
type MovieDetails struct {
	Movie
	Tagline  string       `json:"tagline,omitempty"`
	Budget   int64        `json:"budget,omitempty"`
	Revenue  int64        `json:"revenue,omitempty"`
	Director string       `json:"director,omitempty"`
	Cast     []CastMember `json:"cast"`
	Trailers []Video      `json:"trailers"`
	Images   []string     `json:"images"` // Backdrop URLs for the gallery
	Reviews  []Review     `json:"reviews"`
}

// PreferredTrailer picks an official trailer, falling back to any trailer.
func (d *MovieDetails) PreferredTrailer() *Video {
	var fallback *Video
	for i := range d.Trailers {
		v := &d.Trailers[i]
		if v.Type != "Trailer" || v.Site != "YouTube" {
			continue
		}
		if v.Official {
			return v
		}
		if fallback == nil {
			fallback = v
		}
	}
	return fallback
}
