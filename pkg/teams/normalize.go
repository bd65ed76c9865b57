package teams

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	leadingThe      = regexp.MustCompile(`^the`)
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
)

// Normalize folds a team name for comparison.
// "The New York Giants" -> "newyorkgiants".
// "Montréal" -> "montreal".
// "49ers!" -> "49ers".
// "The-Giants" -> "giants".
func Normalize(name string) string {
	// Decompose accented characters, then drop what is left outside ASCII.
	s := norm.NFKD.String(name)
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = nonAlphanumeric.ReplaceAllString(strings.ToLower(s), "")
	return leadingThe.ReplaceAllString(s, "")
}
