// Package recipe manages per-domain extraction recipes: the data model,
// the SQLite store, the static JSON catalog, the resolver that picks the
// highest-priority recipe for a URL, and the outcome feedback loop that
// keeps recipe confidence honest.
package recipe

import (
	"regexp"

	"github.com/hazyhaar/presse/selector"
)

// Selectors describes how to pull article fields out of a page.
// Title and Content are required; the rest are optional.
type Selectors struct {
	Title   selector.Selector `json:"title"`
	Content selector.Selector `json:"content"`
	Date    selector.Selector `json:"date,omitempty"`
	Author  selector.Selector `json:"author,omitempty"`
	Images  selector.Selector `json:"images,omitempty"`
}

// ListingSelectors describes a page that lists many articles.
type ListingSelectors struct {
	Container selector.Selector `json:"container"`
	Link      selector.Selector `json:"link"`
	Title     selector.Selector `json:"title,omitempty"`
}

// IsZero reports whether no listing selectors are configured.
func (l ListingSelectors) IsZero() bool {
	return l.Container.IsZero() && l.Link.IsZero()
}

// CleaningRule is one ordered regex substitution applied post-extraction.
type CleaningRule struct {
	Pattern string `json:"pattern"`
	Replace string `json:"replace"`

	re *regexp.Regexp
}

// Compile validates and caches the rule's regex.
func (r *CleaningRule) Compile() error {
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return err
	}
	r.re = re
	return nil
}

// Apply runs the substitution. Uncompiled rules pass text through.
func (r *CleaningRule) Apply(text string) string {
	if r.re == nil {
		return text
	}
	return r.re.ReplaceAllString(text, r.Replace)
}

// Recipe is a domain's extraction rules plus its reliability history.
// Recipes are never hard-deleted, only soft-disabled.
type Recipe struct {
	ID       string `json:"id"`
	Domain   string `json:"domain"` // normalized: lowercase, no www., no port
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`

	Selectors        Selectors        `json:"selectors"`
	ListingSelectors ListingSelectors `json:"listing_selectors,omitempty"`
	CleaningRules    []CleaningRule   `json:"cleaning_rules,omitempty"`

	// NeedsBrowser forces the headless-browser substrate for this domain.
	NeedsBrowser bool `json:"needs_browser"`
	// OCRCapable marks domains that defeat DOM extraction entirely and
	// should fall through to the screenshot OCR pipeline.
	OCRCapable bool `json:"ocr_capable"`

	Confidence   float64 `json:"confidence"`
	IsVerified   bool    `json:"is_verified"`
	UsageCount   int64   `json:"usage_count"`
	SuccessCount int64   `json:"success_count"`
	FailureCount int64   `json:"failure_count"`
	LastError    string  `json:"last_error,omitempty"`
	LastSuccess  int64   `json:"last_success,omitempty"` // unix ms

	CreatedAt int64 `json:"created_at"` // unix ms
	UpdatedAt int64 `json:"updated_at"` // unix ms
}

// CompileCleaningRules compiles every cleaning rule, failing on the first
// invalid pattern.
func (r *Recipe) CompileCleaningRules() error {
	for i := range r.CleaningRules {
		if err := r.CleaningRules[i].Compile(); err != nil {
			return err
		}
	}
	return nil
}

// Clean applies the recipe's cleaning rules to text, in order.
func (r *Recipe) Clean(text string) string {
	for i := range r.CleaningRules {
		text = r.CleaningRules[i].Apply(text)
	}
	return text
}

// Filters narrows List queries.
type Filters struct {
	Domain       string // substring match
	OnlyVerified bool
	OnlyActive   bool
}

// Source identifies where a resolved recipe came from.
type Source string

const (
	SourceDatabase Source = "database"
	SourceCatalog  Source = "json"
	SourceNone     Source = "none"
)

// Resolution is the resolver's answer for one URL.
type Resolution struct {
	Source Source  `json:"source"`
	Recipe *Recipe `json:"recipe,omitempty"`
	// Priority orders candidates: verified DB > unverified DB > catalog.
	Priority int `json:"priority"`
}
