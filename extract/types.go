// Package extract turns article HTML into structured content. It runs in
// two modes: recipe-driven (CSS selectors from a stored recipe, article or
// listing) and smart (a fixed chain of four heuristic strategies for
// domains without a recipe). Both feed the same validators, paywall
// detector, and markdown renderer.
package extract

import "errors"

// ErrNoContent is returned when every extraction path has been exhausted.
// Results carrying it set NeedsHelp so an operator can author a recipe.
var ErrNoContent = errors.New("extract: no content extracted")

// ErrNoMatch is returned when a recipe's selectors matched nothing useful.
var ErrNoMatch = errors.New("extract: selectors matched no content")

// Strategy tags which path produced a result.
type Strategy string

const (
	StrategyRecipe     Strategy = "recipe"
	StrategyStructured Strategy = "structured-data"
	StrategySemantic   Strategy = "semantic-html"
	StrategyDensity    Strategy = "text-density"
	StrategyLongest    Strategy = "longest-content"
	StrategyOCR        Strategy = "ocr"
)

// Result is the engine's output contract. When Success is true the title
// and content have both passed validation.
type Result struct {
	Success bool   `json:"success"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
	// Markdown is the sanitized content region rendered as markdown.
	// Empty when the winning path only produced plain text.
	Markdown string   `json:"markdown,omitempty"`
	Date     string   `json:"date,omitempty"`
	Author   string   `json:"author,omitempty"`
	Images   []string `json:"images,omitempty"`

	Confidence float64  `json:"confidence"`
	Strategy   Strategy `json:"strategy"`

	HasPaywall        bool    `json:"has_paywall"`
	PaywallConfidence float64 `json:"paywall_confidence"`

	// NeedsHelp is set when every strategy failed: the domain needs a
	// human-authored recipe.
	NeedsHelp           bool     `json:"needs_help,omitempty"`
	AttemptedStrategies []string `json:"attempted_strategies,omitempty"`
}

// Attempt records one try of one smart-scraper strategy. Internal to the
// chain: only the names are surfaced, via AttemptedStrategies.
type Attempt struct {
	Name     Strategy
	TimedOut bool
	Err      error
}

// ListingItem is one article link discovered on a listing page.
type ListingItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}
