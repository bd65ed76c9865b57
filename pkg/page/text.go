package page

import (
	"regexp"
	"strings"
)

var (
	parenRe    = regexp.MustCompile(`\([^)]*\)`)
	numberRe   = regexp.MustCompile(`[-+]?\d+\.?\d*`)
	spreadRe   = regexp.MustCompile(`(^|\s)[-+]?\d+(\.\d+)?(\s|$)`)
	spaceRe    = regexp.MustCompile(`\s+`)
	firstIntRe = regexp.MustCompile(`\d+`)
)

// CleanTeamName strips parenthesised annotations and standalone numbers
// from option or cell text, leaving the team name. Digits inside a word, as
// in "49ers", are kept.
func CleanTeamName(text string) string {
	text = parenRe.ReplaceAllString(text, " ")
	text = spaceRe.ReplaceAllString(text, "  ")
	text = spreadRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}

// SpreadText returns the spread shown in text: the first number inside
// parentheses, else the first standalone number, else "".
func SpreadText(text string) string {
	for _, paren := range parenRe.FindAllString(text, -1) {
		if n := numberRe.FindString(paren); n != "" {
			return n
		}
	}
	if m := spreadRe.FindString(text); m != "" {
		return strings.TrimSpace(m)
	}
	return ""
}

// GameNumber returns the first integer embedded in name, falling back to id.
func GameNumber(name, id string) (string, bool) {
	if m := firstIntRe.FindString(name); m != "" {
		return m, true
	}
	if m := firstIntRe.FindString(id); m != "" {
		return m, true
	}
	return "", false
}

// IsLockControl reports whether a control is the lock selector.
func IsLockControl(name, id string) bool {
	return strings.Contains(strings.ToLower(name), "lock") || strings.Contains(strings.ToLower(id), "lock")
}
