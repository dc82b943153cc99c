package extract

import (
	"strings"
	"unicode"
)

const (
	minContentLen   = 100
	minContentWords = 3
	minTitleLen     = 10
)

// Placeholder titles that mean a selector grabbed site chrome instead of
// a headline.
var placeholderTitles = map[string]struct{}{
	"home":      {},
	"inicio":    {},
	"portada":   {},
	"untitled":  {},
	"news":      {},
	"noticias":  {},
	"404":       {},
	"not found": {},
}

// IsValidTitle reports whether s looks like a real headline: non-empty
// after trimming, long enough, and not a navigation placeholder.
func IsValidTitle(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < minTitleLen {
		return false
	}
	if _, bad := placeholderTitles[strings.ToLower(s)]; bad {
		return false
	}
	return true
}

// IsValidContent reports whether s is plausible article text: at least
// 100 characters, at least 3 words, and mostly alphabetic.
func IsValidContent(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < minContentLen {
		return false
	}
	if len(strings.Fields(s)) < minContentWords {
		return false
	}
	return mostlyAlphabetic(s)
}

// mostlyAlphabetic reports whether letters and spaces make up the
// majority of the runes. Markup debris and encoding garbage fail this.
func mostlyAlphabetic(s string) bool {
	var alpha, total int
	for _, r := range s {
		total++
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			alpha++
		}
	}
	if total == 0 {
		return false
	}
	return float64(alpha)/float64(total) > 0.5
}
