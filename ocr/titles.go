package ocr

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	minTitleLen  = 15
	maxTitleLen  = 300
	maxJunkRatio = 0.30
)

// Chrome and navigation lines that OCR picks up alongside headlines.
var ocrBoilerplate = regexp.MustCompile(`(?i)^(menu|navegacion|navegación|search|buscar|newsletter|subscribe|suscríbete|cookies?|accept|iniciar sesión|log ?in|sign ?up|share|compartir)\b`)

// Stopwords and prepositions whose presence marks a line as prose, not a
// fragment of chrome.
var titleStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "in": {}, "on": {}, "to": {},
	"for": {}, "with": {}, "and": {}, "at": {}, "by": {}, "from": {},
	"el": {}, "la": {}, "los": {}, "las": {}, "de": {}, "del": {}, "en": {},
	"con": {}, "por": {}, "para": {}, "un": {}, "una": {}, "y": {},
	"le": {}, "les": {}, "des": {}, "du": {}, "dans": {}, "et": {},
}

// Words typical of news headlines in the corpus languages.
var domainKeywords = map[string]struct{}{
	"news": {}, "noticia": {}, "noticias": {}, "gobierno": {}, "president": {},
	"presidente": {}, "police": {}, "policía": {}, "economy": {}, "economía": {},
	"court": {}, "minister": {}, "ministro": {}, "election": {}, "elecciones": {},
}

// Titles extracts candidate headlines from concatenated OCR text. Lines
// survive only if they read like real sentences: garbled and boilerplate
// lines are dropped, and candidates must show title-like traits. Output
// is deduplicated by lowercased text, first occurrence kept.
func Titles(text string) []string {
	var out []string
	seen := make(map[string]struct{})

	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if !plausibleTitle(line) {
			continue
		}
		key := strings.ToLower(line)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, line)
	}
	return out
}

func plausibleTitle(line string) bool {
	if len(line) < minTitleLen || len(line) > maxTitleLen {
		return false
	}
	if garbled(line) {
		return false
	}
	if ocrBoilerplate.MatchString(line) {
		return false
	}
	return titleTraits(line)
}

// garbled rejects lines where OCR produced mostly symbols: over 30%
// non-alphabetic, non-space characters.
func garbled(line string) bool {
	var junk, total int
	for _, r := range line {
		total++
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) && !unicode.IsDigit(r) {
			junk++
		}
		if unicode.IsControl(r) {
			junk++
		}
	}
	if total == 0 {
		return true
	}
	return float64(junk)/float64(total) > maxJunkRatio
}

// titleTraits requires at least one headline marker: a stopword, a
// domain keyword, or a 5-15 token length.
func titleTraits(line string) bool {
	tokens := strings.Fields(strings.ToLower(line))
	if len(tokens) >= 5 && len(tokens) <= 15 {
		return true
	}
	for _, tok := range tokens {
		tok = strings.Trim(tok, ".,;:!?\"'()")
		if _, ok := titleStopwords[tok]; ok {
			return true
		}
		if _, ok := domainKeywords[tok]; ok {
			return true
		}
	}
	return false
}
