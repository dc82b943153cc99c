package extract

import (
	"bytes"
	"math"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	minDensity     = 0.3
	minDensityText = 100
)

// Elements whose class or id marks them as chrome, not content.
var densityExclude = regexp.MustCompile(`(?i)nav|menu|footer|sidebar|header|ad|comment|widget`)

// textDensity walks the DOM and picks the subtree with the best
// text-to-markup ratio, weighted by how much text it holds. Chrome
// regions and hidden elements are excluded before scoring.
func textDensity(doc *goquery.Document, pageURL string) *candidate {
	root := doc.Get(0)
	if root == nil {
		return nil
	}

	type scored struct {
		node  *html.Node
		text  string
		score float64
	}
	var best *scored

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if isChrome(n) || isHidden(n) {
				return
			}
			if densityCandidate(n.DataAtom) {
				text := nodeText(n)
				if len(text) > minDensityText {
					inner := innerHTMLLen(n)
					if inner > 0 {
						density := float64(len(text)) / float64(inner)
						if density > minDensity {
							s := density * math.Log(float64(len(text)))
							if best == nil || s > best.score {
								best = &scored{node: n, text: text, score: s}
							}
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if best == nil {
		return nil
	}

	var buf bytes.Buffer
	html.Render(&buf, best.node)

	return &candidate{
		title:       pageTitle(doc),
		content:     best.text,
		contentHTML: buf.String(),
	}
}

// densityCandidate limits scoring to elements that plausibly wrap a
// whole article body.
func densityCandidate(a atom.Atom) bool {
	switch a {
	case atom.Article, atom.Main, atom.Section, atom.Div, atom.Td, atom.Body:
		return true
	}
	return false
}

// isChrome reports navigation, footer, and ad regions by tag, role, and
// class/id keywords.
func isChrome(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Nav, atom.Header, atom.Footer, atom.Aside, atom.Script, atom.Style, atom.Noscript, atom.Form:
		return true
	}
	for _, attr := range n.Attr {
		switch attr.Key {
		case "class", "id":
			if densityExclude.MatchString(attr.Val) {
				return true
			}
		case "role":
			switch attr.Val {
			case "navigation", "banner", "contentinfo", "complementary":
				return true
			}
		}
	}
	return false
}

// isHidden catches inline-styled invisibility. Stylesheet-driven hiding
// is out of reach without a rendering engine.
func isHidden(n *html.Node) bool {
	for _, attr := range n.Attr {
		if attr.Key == "hidden" {
			return true
		}
		if attr.Key == "style" {
			v := strings.ReplaceAll(strings.ToLower(attr.Val), " ", "")
			if strings.Contains(v, "display:none") || strings.Contains(v, "visibility:hidden") {
				return true
			}
		}
	}
	return false
}

// nodeText collects visible text from a subtree, skipping chrome and
// hidden regions.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode && (isChrome(n) || isHidden(n)) {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}

// innerHTMLLen measures the serialized length of a node's children.
func innerHTMLLen(n *html.Node) int {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		html.Render(&buf, c)
	}
	return buf.Len()
}

// pageTitle falls back through og:title, the first h1, and <title>.
func pageTitle(doc *goquery.Document) string {
	if t := metaContent(doc, "og:title"); t != "" {
		return t
	}
	if t := collapseSpace(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	return collapseSpace(doc.Find("title").First().Text())
}
