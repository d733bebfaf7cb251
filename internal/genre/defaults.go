package genre

import "github.com/cinemood/cinemood-server/internal/domain"

// TMDB movie genre IDs.
const (
	Action         = 28
	Adventure      = 12
	Animation      = 16
	Comedy         = 35
	Crime          = 80
	Documentary    = 99
	Drama          = 18
	Family         = 10751
	Fantasy        = 14
	History        = 36
	Horror         = 27
	Music          = 10402
	Mystery        = 9648
	Romance        = 10749
	ScienceFiction = 878
	TVMovie        = 10770
	Thriller       = 53
	War            = 10752
	Western        = 37
)

var defaultGenres = []domain.Genre{
	{ID: Action, Name: "Action"},
	{ID: Adventure, Name: "Adventure"},
	{ID: Animation, Name: "Animation"},
	{ID: Comedy, Name: "Comedy"},
	{ID: Crime, Name: "Crime"},
	{ID: Documentary, Name: "Documentary"},
	{ID: Drama, Name: "Drama"},
	{ID: Family, Name: "Family"},
	{ID: Fantasy, Name: "Fantasy"},
	{ID: History, Name: "History"},
	{ID: Horror, Name: "Horror"},
	{ID: Music, Name: "Music"},
	{ID: Mystery, Name: "Mystery"},
	{ID: Romance, Name: "Romance"},
	{ID: ScienceFiction, Name: "Science Fiction"},
	{ID: TVMovie, Name: "TV Movie"},
	{ID: Thriller, Name: "Thriller"},
	{ID: War, Name: "War"},
	{ID: Western, Name: "Western"},
}

// Defaults returns a copy of TMDB's English movie genre list.
// Used until the provider's own list has been fetched.
func Defaults() []domain.Genre {
	out := make([]domain.Genre, len(defaultGenres))
	copy(out, defaultGenres)
	return out
}

// Taxonomy resolves provider genre IDs to named genres.
// It is immutable once built and safe for concurrent use.
type Taxonomy struct {
	names map[int]string
}

// NewTaxonomy builds a taxonomy from a genre list. Later entries win on
// duplicate IDs; entries with a blank name are skipped.
func NewTaxonomy(genres []domain.Genre) *Taxonomy {
	names := make(map[int]string, len(genres))
	for _, g := range genres {
		if g.Name == "" {
			continue
		}
		names[g.ID] = g.Name
	}
	return &Taxonomy{names: names}
}

// DefaultTaxonomy returns a taxonomy over Defaults.
func DefaultTaxonomy() *Taxonomy {
	return NewTaxonomy(defaultGenres)
}

// Name returns the genre name for id.
func (t *Taxonomy) Name(id int) (string, bool) {
	name, ok := t.names[id]
	return name, ok
}

// Len returns the number of known genres.
func (t *Taxonomy) Len() int {
	return len(t.names)
}

// Resolve maps IDs to genres, keeping order and duplicates.
// Unknown IDs are dropped.
func (t *Taxonomy) Resolve(ids []int) []domain.Genre {
	out := make([]domain.Genre, 0, len(ids))
	for _, id := range ids {
		if name, ok := t.names[id]; ok {
			out = append(out, domain.Genre{ID: id, Name: name})
		}
	}
	return out
}
