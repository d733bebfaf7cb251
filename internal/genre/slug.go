// Package genre normalises movie genre names so labels from different
// sources compare equal, and carries the TMDB movie genre taxonomy.
package genre

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Matches runs of anything that is not a lowercase letter or digit.
var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a genre name to a lowercase hyphenated ASCII slug.
// "Science Fiction" -> "science-fiction".
// "Sci-Fi & Fantasy" -> "sci-fi-and-fantasy".
// "Comédie" -> "comedie".
func Slugify(s string) string {
	// Decompose accented characters so the base letter survives.
	s = norm.NFKD.String(s)

	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return unicode.ToLower(r)
	}, s)

	s = strings.ReplaceAll(s, "&", " and ")
	s = nonAlphanumeric.ReplaceAllString(s, "-")

	return strings.Trim(s, "-")
}
