package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	semanticContainers = []string{"article", "main", "[role=main]", "[role=article]"}
	semanticTitles     = []string{"h1", "h2", ".title", ".headline", "[itemprop=headline]"}
	semanticDates      = []string{"time[datetime]", "[datetime]", ".date", ".published", "[itemprop=datePublished]"}
	semanticAuthors    = []string{"[rel=author]", "[itemprop=author]", ".author", ".byline", ".author-name"}
	semanticContent    = []string{".article-content", ".article-body", ".post-content", ".entry-content", ".content-body"}
)

// semanticHTML extracts from HTML5 landmark structure. Requires a
// semantic container; everything else is picked from ordered selector
// lists inside it.
func semanticHTML(doc *goquery.Document, pageURL string) *candidate {
	var container *goquery.Selection
	for _, sel := range semanticContainers {
		if m := doc.Find(sel).First(); m.Length() > 0 {
			container = m
			break
		}
	}
	if container == nil {
		return nil
	}

	c := &candidate{
		title:  firstText(container, semanticTitles),
		author: firstText(container, semanticAuthors),
		date:   semanticDate(container),
	}
	if c.title == "" {
		c.title = firstText(doc.Selection, semanticTitles)
	}

	for _, sel := range semanticContent {
		if m := container.Find(sel).First(); m.Length() > 0 {
			c.content = paragraphText(m)
			if c.content != "" {
				if h, err := goquery.OuterHtml(m); err == nil {
					c.contentHTML = h
				}
				break
			}
		}
	}
	if c.content == "" {
		c.content = paragraphText(container)
		if h, err := goquery.OuterHtml(container); err == nil {
			c.contentHTML = h
		}
	}

	container.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok && src != "" {
			c.images = append(c.images, src)
		}
	})

	if c.content == "" {
		return nil
	}
	return c
}

// firstText returns the first non-empty text among ordered selectors.
func firstText(root *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if t := collapseSpace(root.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// semanticDate prefers a machine-readable datetime attribute over the
// element's display text.
func semanticDate(root *goquery.Selection) string {
	for _, sel := range semanticDates {
		m := root.Find(sel).First()
		if m.Length() == 0 {
			continue
		}
		if dt, ok := m.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
			return strings.TrimSpace(dt)
		}
		if t := collapseSpace(m.Text()); t != "" {
			return t
		}
	}
	return ""
}
