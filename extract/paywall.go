package extract

import "strings"

// Paywall detection outcome. Detection annotates results; it never fails
// an extraction on its own.
type Paywall struct {
	Detected   bool    `json:"detected"`
	Confidence float64 `json:"confidence"`
	// Signal names which check fired: "keyword", "css", "short-content".
	Signal string `json:"signal,omitempty"`
}

const (
	paywallKeywordConfidence = 0.9
	paywallCSSConfidence     = 0.85
	paywallShortConfidence   = 0.5
	paywallNoneConfidence    = 0.95
	paywallShortContentLen   = 200
)

// Multilingual subscription prompts seen on walled articles.
var paywallKeywords = []string{
	"suscríbete",
	"suscribete para seguir leyendo",
	"subscribe to continue",
	"subscribe to read",
	"subscribers only",
	"premium content",
	"contenido exclusivo",
	"contenido premium",
	"hazte suscriptor",
	"abonnez-vous",
	"réservé aux abonnés",
	"register to continue",
	"create a free account to continue",
	"this article is for subscribers",
}

// Class and id fragments used by common paywall overlays.
var paywallMarkers = []string{
	`paywall`,
	`subscription-wall`,
	`piano-offer`,
	`tp-modal`,
	`meter-wall`,
	`regwall`,
	`premium-overlay`,
}

// DetectPaywall runs three independent checks against the full page
// markup and the extracted content; the first match wins. No match still
// reports a confidence, for the "probably open" case.
func DetectPaywall(pageHTML, content string) Paywall {
	lower := strings.ToLower(pageHTML)

	for _, kw := range paywallKeywords {
		if strings.Contains(lower, kw) {
			return Paywall{Detected: true, Confidence: paywallKeywordConfidence, Signal: "keyword"}
		}
	}

	for _, m := range paywallMarkers {
		if markerInAttr(lower, m) {
			return Paywall{Detected: true, Confidence: paywallCSSConfidence, Signal: "css"}
		}
	}

	if len(strings.TrimSpace(content)) < paywallShortContentLen {
		return Paywall{Detected: true, Confidence: paywallShortConfidence, Signal: "short-content"}
	}

	return Paywall{Confidence: paywallNoneConfidence}
}

// markerInAttr checks that the marker appears inside a quoted class or
// id attribute value rather than in prose.
func markerInAttr(lower, marker string) bool {
	for _, attr := range []string{`class="`, `id="`, `class='`, `id='`} {
		quote := attr[len(attr)-1]
		idx := 0
		for {
			i := strings.Index(lower[idx:], attr)
			if i < 0 {
				break
			}
			start := idx + i + len(attr)
			end := strings.IndexByte(lower[start:], quote)
			if end < 0 {
				break
			}
			if strings.Contains(lower[start:start+end], marker) {
				return true
			}
			idx = start + end
		}
	}
	return false
}
