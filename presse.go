// Package presse is an adaptive news-article extraction engine. Given a
// URL it resolves the best available per-domain recipe, executes it on a
// static or headless-browser substrate, falls back to a heuristic smart
// scraper, and as a last resort reads the rendered page with OCR. Every
// recipe use feeds an outcome loop that keeps recipe confidence honest.
package presse

import (
	"errors"

	"github.com/hazyhaar/presse/extract"
	"github.com/hazyhaar/presse/ocr"
	"github.com/hazyhaar/presse/recipe"
	"github.com/hazyhaar/presse/selector"
)

// Error taxonomy. Everything else the engine can report wraps one of
// these or a package sentinel.
var (
	// ErrInvalidURL rejects URLs pre-flight, before any network use.
	ErrInvalidURL = errors.New("presse: invalid url")
	// ErrRecipeNotFound is returned for a ForceRecipeID that matches
	// nothing.
	ErrRecipeNotFound = errors.New("presse: recipe not found")

	// ErrInvalidSelector is returned when a selector fails pre-flight
	// CSS validation.
	ErrInvalidSelector = selector.ErrInvalidSelector

	// ErrNoContent means every path was exhausted; the result carries
	// NeedsHelp for a human operator.
	ErrNoContent = extract.ErrNoContent
	// ErrOCRUnavailable means the OCR path was selected but no backend
	// is configured.
	ErrOCRUnavailable = ocr.ErrUnavailable
	// ErrDuplicateRecipe is returned when saving a recipe for an
	// already-registered domain.
	ErrDuplicateRecipe = recipe.ErrDuplicate
)

// Options tune a single Extract call.
type Options struct {
	// ForceRecipeID bypasses resolution and uses this stored recipe.
	ForceRecipeID string
	// CustomSelectors take absolute priority over any stored recipe,
	// for interactive test-before-save flows. Nothing is persisted.
	CustomSelectors *recipe.Selectors
	// CleaningRules accompany CustomSelectors.
	CleaningRules []recipe.CleaningRule
}

// ListingError records one failed article inside a listing run.
type ListingError struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// ListingResult is the outcome of ExtractListing.
type ListingResult struct {
	TotalFound   int               `json:"total_found"`
	TotalScraped int               `json:"total_scraped"`
	Articles     []*extract.Result `json:"articles"`
	Errors       []ListingError    `json:"errors,omitempty"`
}
