package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// FoldKey normalizes text for use in cache keys. It applies NFKC, Unicode
// case folding, drops punctuation, and collapses whitespace runs, so
// "Le Guin, Ursula" and "le  guin ursula" fold to the same key.
func FoldKey(value string) string {
	folded := folder.String(norm.NFKC.String(value))
	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}

// CollapseSpace trims value and replaces internal whitespace runs with a single space.
func CollapseSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// RuneLen returns the number of runes in value.
func RuneLen(value string) int {
	return utf8.RuneCountInString(value)
}

// Truncate returns at most limit runes of value.
func Truncate(value string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit])
}

// DigitsOnly strips everything except digits and a trailing check character X.
func DigitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteByte('X')
		}
	}
	return b.String()
}
