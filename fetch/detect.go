package fetch

import (
	"bytes"
	"unicode"
)

const (
	minDocumentBytes = 256
	minVisibleText   = 200
	minTextRatio     = 0.10
)

// Markers of client-rendered application shells. A page built around an
// empty mount point has nothing to extract until scripts run.
var spaShellMarkers = [][]byte{
	[]byte(`<div id="root"></div>`),
	[]byte(`<div id="app"></div>`),
	[]byte(`<div id="__next"></div>`),
	[]byte(`<noscript>you need to enable javascript`),
	[]byte(`<noscript>enable javascript`),
}

// IsSufficient reports whether statically fetched HTML carries enough
// visible text to extract from, or whether the page needs a browser to
// render. The heuristic compares visible text against markup volume and
// looks for empty SPA mount points.
func IsSufficient(html []byte) bool {
	if len(html) < minDocumentBytes {
		return false
	}

	lower := bytes.ToLower(html)
	for _, m := range spaShellMarkers {
		if bytes.Contains(lower, m) {
			return false
		}
	}

	text, markup := visibleText(lower)
	total := text + markup
	if total == 0 || text < minVisibleText {
		return false
	}
	return float64(text)/float64(total) >= minTextRatio
}

// visibleText counts non-whitespace bytes outside tags, scripts, and
// styles. Input must already be lowercased.
func visibleText(lower []byte) (text, markup int) {
	i := 0
	for i < len(lower) {
		if lower[i] != '<' {
			if !unicode.IsSpace(rune(lower[i])) {
				text++
			}
			i++
			continue
		}

		// Skip the tag itself; script and style bodies count as markup.
		end := bytes.IndexByte(lower[i:], '>')
		if end < 0 {
			markup += len(lower) - i
			break
		}
		markup += end + 1

		var closer []byte
		if bytes.HasPrefix(lower[i:], []byte("<script")) {
			closer = []byte("</script")
		} else if bytes.HasPrefix(lower[i:], []byte("<style")) {
			closer = []byte("</style")
		}
		i += end + 1

		if closer != nil {
			idx := bytes.Index(lower[i:], closer)
			if idx < 0 {
				markup += len(lower) - i
				break
			}
			markup += idx
			i += idx
		}
	}
	return text, markup
}
