// Package selector models extraction selectors as a small tagged union:
// a plain CSS text selector, or an attribute selector ("a[title]") meaning
// "read that attribute off the matched element, fall back to its text".
//
// Selectors are parsed and validated once, at recipe-save time. Invalid CSS
// is rejected here, never at extraction time. The attribute form exists
// because some sites put the full headline only in a title/alt/data-*
// attribute while the visible link text is truncated or empty.
package selector

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// ErrInvalidSelector is returned when a selector fails pre-flight CSS
// validation.
var ErrInvalidSelector = errors.New("selector: invalid selector")

// Kind discriminates the selector union.
type Kind int

const (
	// Text reads the matched element's text content.
	Text Kind = iota
	// Attribute reads a named attribute off the matched element,
	// falling back to its text content when the attribute is empty.
	Attribute
)

// Selector is a validated extraction selector. It serialises as its raw
// string; the parsed form is rebuilt on load.
type Selector struct {
	// Raw is the selector as the user wrote it.
	Raw string
	// Kind is Text or Attribute.
	Kind Kind
	// CSS is the matchable portion: for attribute selectors the bracket
	// clause is stripped so elements missing the attribute still match
	// (the text fallback depends on that).
	CSS string
	// Attr is the attribute name for Kind == Attribute.
	Attr string
}

// bracketClause captures [name] or [name="value"] / [name='value'] / [name=value].
var bracketClause = regexp.MustCompile(`\[\s*([a-zA-Z_][\w:.-]*)\s*(?:[~|^$*]?=\s*(?:"[^"]*"|'[^']*'|[^\]]*))?\s*\]`)

// Parse validates raw as a CSS selector and classifies it.
func Parse(raw string) (Selector, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Selector{}, fmt.Errorf("%w: empty", ErrInvalidSelector)
	}

	// Syntax gate: the raw selector must be parseable CSS.
	if _, err := cascadia.ParseGroup(raw); err != nil {
		return Selector{}, fmt.Errorf("%w: %q: %v", ErrInvalidSelector, raw, err)
	}

	m := bracketClause.FindStringSubmatchIndex(raw)
	if m == nil {
		return Selector{Raw: raw, Kind: Text, CSS: raw}, nil
	}

	attr := raw[m[2]:m[3]]
	base := strings.TrimSpace(raw[:m[0]] + raw[m[1]:])
	if base == "" {
		// "[data-headline]" alone: match any element carrying nothing
		// in particular; fall back to a universal match.
		base = "*"
	}
	if _, err := cascadia.ParseGroup(base); err != nil {
		return Selector{}, fmt.Errorf("%w: base %q: %v", ErrInvalidSelector, base, err)
	}

	return Selector{Raw: raw, Kind: Attribute, CSS: base, Attr: attr}, nil
}

// MustParse is Parse for static selectors known to be valid.
func MustParse(raw string) Selector {
	s, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// IsAttributeSelector reports whether raw contains a bracketed attribute
// clause. It does not validate the CSS; use Parse for that.
func IsAttributeSelector(raw string) bool {
	return bracketClause.MatchString(raw)
}

// Valid reports whether raw parses as CSS.
func Valid(raw string) bool {
	_, err := Parse(raw)
	return err == nil
}

// Extract reads the selector's value from the first match at or under
// root. Attribute selectors read the attribute off the first match and
// fall back to the element text when the attribute is absent or empty.
func (s Selector) Extract(root *goquery.Selection) string {
	match := s.matches(root).First()
	if match.Length() == 0 {
		return ""
	}
	return s.valueOf(match)
}

// ExtractAll reads the selector's value from every match, roots first.
func (s Selector) ExtractAll(root *goquery.Selection) []string {
	var out []string
	s.matches(root).Each(func(_ int, m *goquery.Selection) {
		if v := s.valueOf(m); v != "" {
			out = append(out, v)
		}
	})
	return out
}

// matches returns the root elements that themselves satisfy the CSS plus
// all descendant matches. Listing containers are often the anchors they
// describe; Find alone would never see them.
func (s Selector) matches(root *goquery.Selection) *goquery.Selection {
	found := root.Find(s.CSS)
	if self := root.Filter(s.CSS); self.Length() > 0 {
		return self.AddSelection(found)
	}
	return found
}

func (s Selector) valueOf(m *goquery.Selection) string {
	if s.Kind == Attribute {
		if v, ok := m.Attr(s.Attr); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return strings.TrimSpace(m.Text())
}

// IsZero reports whether the selector is unset.
func (s Selector) IsZero() bool { return s.Raw == "" }

// String returns the raw selector.
func (s Selector) String() string { return s.Raw }

// MarshalJSON serialises the selector as its raw string.
func (s Selector) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Raw)
}

// UnmarshalJSON re-parses the raw string form.
func (s *Selector) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = Selector{}
		return nil
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
