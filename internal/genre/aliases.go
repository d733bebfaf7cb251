package genre

// aliases maps slugged variations onto the canonical TMDB slug.
var aliases = map[string]string{
	"sci-fi":          "science-fiction",
	"scifi":           "science-fiction",
	"sf":              "science-fiction",
	"animated":        "animation",
	"cartoon":         "animation",
	"anime":           "animation",
	"comedies":        "comedy",
	"dramas":          "drama",
	"doc":             "documentary",
	"docs":            "documentary",
	"documentaries":   "documentary",
	"musical":         "music",
	"musicals":        "music",
	"sports":          "sport",
	"suspense":        "thriller",
	"thrillers":       "thriller",
	"mysteries":       "mystery",
	"romantic":        "romance",
	"kids":            "family",
	"children":        "family",
	"family-friendly": "family",
}

// Canonical returns the canonical slug for a genre name.
func Canonical(name string) string {
	slug := Slugify(name)
	if canonical, ok := aliases[slug]; ok {
		return canonical
	}
	return slug
}

// Match reports whether two genre names refer to the same genre.
// Blank names never match.
func Match(a, b string) bool {
	ca := Canonical(a)
	return ca != "" && ca == Canonical(b)
}
