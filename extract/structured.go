package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// JSON-LD types accepted as article markup.
var articleTypes = map[string]struct{}{
	"NewsArticle": {},
	"Article":     {},
	"BlogPosting": {},
}

// Minimum length for an Open Graph description to stand in as content
// without looking for the real article body.
const minOGDescription = 500

// Content containers tried when the OG description is too short.
var articleContainers = []string{
	"article", "[role=article]", ".article-content", ".post-content", ".entry-content",
}

// structuredData reads machine-readable article markup: JSON-LD first,
// Open Graph meta tags second.
func structuredData(doc *goquery.Document, pageURL string) *candidate {
	if c := fromJSONLD(doc); c != nil {
		return c
	}
	return fromOpenGraph(doc)
}

// ldArticle is the slice of schema.org article fields we consume.
type ldArticle struct {
	Type          any             `json:"@type"`
	Headline      string          `json:"headline"`
	ArticleBody   string          `json:"articleBody"`
	Description   string          `json:"description"`
	DatePublished string          `json:"datePublished"`
	Author        json.RawMessage `json:"author"`
	Image         json.RawMessage `json:"image"`
	Graph         json.RawMessage `json:"@graph"`
}

func fromJSONLD(doc *goquery.Document) *candidate {
	var found *candidate
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, art := range decodeLD([]byte(s.Text())) {
			if !isArticleType(art.Type) {
				continue
			}
			body := strings.TrimSpace(art.ArticleBody)
			if body == "" {
				body = strings.TrimSpace(art.Description)
			}
			if art.Headline == "" || body == "" {
				continue
			}
			found = &candidate{
				title:   collapseSpace(art.Headline),
				content: collapseSpace(body),
				date:    art.DatePublished,
				author:  ldAuthor(art.Author),
				images:  ldImages(art.Image),
			}
			return false
		}
		return true
	})
	return found
}

// decodeLD tolerates the three shapes sites publish: a single object, an
// array of objects, and an object wrapping an @graph array.
func decodeLD(data []byte) []ldArticle {
	var one ldArticle
	if err := json.Unmarshal(data, &one); err == nil {
		if len(one.Graph) > 0 {
			var graph []ldArticle
			if err := json.Unmarshal(one.Graph, &graph); err == nil {
				return graph
			}
		}
		return []ldArticle{one}
	}
	var many []ldArticle
	if err := json.Unmarshal(data, &many); err == nil {
		return many
	}
	return nil
}

// isArticleType handles "@type" being a string or a list of strings.
func isArticleType(t any) bool {
	switch v := t.(type) {
	case string:
		_, ok := articleTypes[v]
		return ok
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				if _, hit := articleTypes[s]; hit {
					return true
				}
			}
		}
	}
	return false
}

// ldAuthor accepts {"name": ...}, [{"name": ...}], or a bare string.
func ldAuthor(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Name != "" {
		return obj.Name
	}
	var list []struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
		return list[0].Name
	}
	return ""
}

// ldImages accepts a URL string, a list of URLs, or {"url": ...}.
func ldImages(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if json.Unmarshal(raw, &s) == nil && s != "" {
		return []string{s}
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
		return list
	}
	var obj struct {
		URL string `json:"url"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.URL != "" {
		return []string{obj.URL}
	}
	return nil
}

func fromOpenGraph(doc *goquery.Document) *candidate {
	title := metaContent(doc, "og:title")
	desc := metaContent(doc, "og:description")
	if title == "" || desc == "" {
		return nil
	}

	// A truncated OG description is a teaser; prefer the real article
	// body when a known container holds more text.
	if len(desc) < minOGDescription {
		for _, sel := range articleContainers {
			m := doc.Find(sel).First()
			if m.Length() == 0 {
				continue
			}
			body := paragraphText(m)
			if body == "" {
				body = collapseSpace(m.Text())
			}
			if len(body) > len(desc) {
				desc = body
			}
			break
		}
	}

	c := &candidate{
		title:   collapseSpace(title),
		content: desc,
		date:    metaContent(doc, "article:published_time"),
		author:  metaContent(doc, "article:author"),
	}
	if img := metaContent(doc, "og:image"); img != "" {
		c.images = []string{img}
	}
	return c
}

// metaContent reads a meta tag by property or name.
func metaContent(doc *goquery.Document, key string) string {
	v, _ := doc.Find(`meta[property="` + key + `"]`).First().Attr("content")
	if v == "" {
		v, _ = doc.Find(`meta[name="` + key + `"]`).First().Attr("content")
	}
	return strings.TrimSpace(v)
}
