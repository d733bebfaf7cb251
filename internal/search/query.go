package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/cinemood/cinemood-server/internal/genre"
)

// Result limits.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Sort keys accepted by Params.SortBy.
const (
	SortRelevance  = "relevance"
	SortRating     = "rating"
	SortYear       = "year"
	SortPopularity = "popularity"
)

// Params configures a search query.
type Params struct {
	Query string // Free text over title, original title and overview

	// Filters
	Genres    []string // Genre names or slugs, OR'd; aliases are accepted
	MinYear   int
	MaxYear   int
	MinRating float64

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // relevance, rating, year, popularity
	SortOrder string // asc, desc (default)

	IncludeFacets bool
	Highlight     bool
}

// Result is one page of search hits.
type Result struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []Hit        `json:"hits"`
	Genres []FacetCount `json:"genres,omitempty"`
}

// Hit is a single matching movie.
type Hit struct {
	MovieID    int               `json:"movie_id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	Year       int               `json:"year,omitempty"`
	Rating     float64           `json:"rating"`
	Genres     []string          `json:"genres,omitempty"`
	PosterURL  string            `json:"poster_url,omitempty"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a search query.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	params = normalizeParams(params)

	s.mu.RLock()
	defer s.mu.RUnlock()

	searchRequest := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	addSorting(searchRequest, params)

	if params.IncludeFacets {
		searchRequest.AddFacet("genre_slugs", bleve.NewFacetRequest("genre_slugs", 20))
	}
	if params.Highlight && params.Query != "" {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("title")
		searchRequest.Highlight.AddField("overview")
	}

	searchRequest.Fields = []string{"id", "title", "year", "rating", "genres", "poster_url"}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		movieID, convErr := strconv.Atoi(hit.ID)
		if convErr != nil {
			s.logger.Warn("skipping search hit with non-numeric id", "id", hit.ID)
			continue
		}

		h := Hit{
			MovieID: movieID,
			Score:   hit.Score,
			Genres:  stringsField(hit.Fields["genres"]),
		}
		if t, ok := hit.Fields["title"].(string); ok {
			h.Title = t
		}
		if y, ok := hit.Fields["year"].(float64); ok {
			h.Year = int(y)
		}
		if r, ok := hit.Fields["rating"].(float64); ok {
			h.Rating = r
		}
		if p, ok := hit.Fields["poster_url"].(string); ok {
			h.PosterURL = p
		}

		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, h)
	}

	if facet, ok := searchResult.Facets["genre_slugs"]; ok && facet.Terms != nil {
		for _, term := range facet.Terms.Terms() {
			result.Genres = append(result.Genres, FacetCount{Value: term.Term, Count: term.Count})
		}
	}

	return result, nil
}

func normalizeParams(p Params) Params {
	p.Query = strings.TrimSpace(p.Query)
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// buildSearchQuery constructs the Bleve query from params.
// Text clauses are OR'd together; filters are AND'd onto the result.
func buildSearchQuery(params Params) query.Query {
	var queries []query.Query

	if params.Query != "" {
		lowered := strings.ToLower(params.Query)

		titleMatch := bleve.NewMatchQuery(params.Query)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)

		originalMatch := bleve.NewMatchQuery(params.Query)
		originalMatch.SetField("original_title")
		originalMatch.SetBoost(1.5)

		overviewMatch := bleve.NewMatchQuery(params.Query)
		overviewMatch.SetField("overview")

		// Typo tolerance on the title.
		fuzzyQuery := bleve.NewFuzzyQuery(lowered)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("title")
		fuzzyQuery.SetBoost(0.8)

		textQueries := []query.Query{titleMatch, originalMatch, overviewMatch, fuzzyQuery}

		// Prefix for type-ahead.
		if len(lowered) >= 2 && !strings.Contains(lowered, " ") {
			prefixQuery := bleve.NewPrefixQuery(lowered)
			prefixQuery.SetField("title")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if slugs := genreSlugs(params.Genres); len(slugs) > 0 {
		genreQueries := make([]query.Query, len(slugs))
		for i, slug := range slugs {
			gq := bleve.NewTermQuery(slug)
			gq.SetField("genre_slugs")
			genreQueries[i] = gq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(genreQueries...))
	}

	inclusive := true
	if params.MinYear > 0 || params.MaxYear > 0 {
		var lo, hi *float64
		if params.MinYear > 0 {
			v := float64(params.MinYear)
			lo = &v
		}
		if params.MaxYear > 0 {
			v := float64(params.MaxYear)
			hi = &v
		}
		rangeQuery := bleve.NewNumericRangeInclusiveQuery(lo, hi, &inclusive, &inclusive)
		rangeQuery.SetField("year")
		queries = append(queries, rangeQuery)
	}

	if params.MinRating > 0 {
		lo := params.MinRating
		rangeQuery := bleve.NewNumericRangeInclusiveQuery(&lo, nil, &inclusive, nil)
		rangeQuery.SetField("rating")
		queries = append(queries, rangeQuery)
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// genreSlugs canonicalises filter names and drops blanks and duplicates.
func genreSlugs(names []string) []string {
	var slugs []string
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		slug := genre.Canonical(name)
		if slug == "" {
			continue
		}
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		slugs = append(slugs, slug)
	}
	return slugs
}

// addSorting configures sort order. Ties fall back to relevance, then ID so
// paging is stable.
func addSorting(req *bleve.SearchRequest, params Params) {
	prefix := "-"
	if params.SortOrder == "asc" {
		prefix = ""
	}

	switch params.SortBy {
	case SortRating:
		req.SortBy([]string{prefix + "rating", "-_score", "_id"})
	case SortYear:
		req.SortBy([]string{prefix + "year", "-_score", "_id"})
	case SortPopularity:
		req.SortBy([]string{prefix + "popularity", "-_score", "_id"})
	default:
		req.SortBy([]string{"-_score", "_id"})
	}
}

// stringsField reads a stored text field that may hold one or many values.
func stringsField(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
