package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/presse/recipe"
)

// Navigation and site-chrome titles that leak into listing containers.
var boilerplateTitle = regexp.MustCompile(`(?i)menu|navegacion|search|newsletter`)

// Listing applies listing selectors to an index page and returns the
// discovered article links in document order. Duplicate titles keep the
// first occurrence; chrome entries and short titles are dropped.
func (e *Engine) Listing(doc *goquery.Document, sel recipe.ListingSelectors, pageURL string) ([]ListingItem, error) {
	if sel.Container.IsZero() || sel.Link.IsZero() {
		return nil, ErrNoMatch
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	var items []ListingItem
	seen := make(map[string]struct{})

	doc.Find(sel.Container.CSS).Each(func(_ int, container *goquery.Selection) {
		link := linkValue(container, sel)
		if link == "" {
			return
		}
		if base != nil {
			if u, err := url.Parse(link); err == nil {
				link = base.ResolveReference(u).String()
			}
		}

		title := sel.Link.Extract(container)
		if !sel.Title.IsZero() {
			if t := sel.Title.Extract(container); t != "" {
				title = t
			}
		}
		title = collapseSpace(title)

		if len(title) < minTitleLen || boilerplateTitle.MatchString(title) {
			return
		}
		key := strings.ToLower(title)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		items = append(items, ListingItem{Title: title, URL: link})
	})

	if len(items) == 0 {
		return nil, ErrNoMatch
	}
	return items, nil
}

// linkValue pulls the href for a container. An attribute link selector
// already names the attribute to read; a text link selector still needs
// the href off the anchor it matches.
func linkValue(container *goquery.Selection, sel recipe.ListingSelectors) string {
	m := container.Find(sel.Link.CSS).First()
	if m.Length() == 0 {
		// The container itself may be the anchor.
		if goquery.NodeName(container) == "a" {
			m = container
		} else {
			return ""
		}
	}
	if href, ok := m.Attr("href"); ok && strings.TrimSpace(href) != "" {
		return strings.TrimSpace(href)
	}
	// Attribute selectors like a[data-url] carry the target elsewhere.
	if v := sel.Link.Extract(container); strings.Contains(v, "/") && !strings.ContainsAny(v, " \n") {
		return v
	}
	return ""
}
