package extract

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"
)

var (
	longestPositive = regexp.MustCompile(`(?i)article|content|main|post|entry|story|body`)
	longestNegative = regexp.MustCompile(`(?i)nav|menu|sidebar|footer|header|ad|comment|widget|related|share|social|popup|modal`)
)

// longestContent is the last-ditch strategy: among block containers that
// look like main content by class/id keywords, keep the one with the
// most paragraph text.
func longestContent(doc *goquery.Document, pageURL string) *candidate {
	var bestSel *goquery.Selection
	var bestText string

	doc.Find("div, section, article, main").Each(func(_ int, m *goquery.Selection) {
		if !probablyMainContent(m) {
			return
		}
		text := paragraphText(m)
		if len(text) > len(bestText) {
			bestText = text
			bestSel = m
		}
	})

	if bestSel == nil || bestText == "" {
		return nil
	}

	c := &candidate{
		title:   pageTitle(doc),
		content: bestText,
	}
	if h, err := goquery.OuterHtml(bestSel); err == nil {
		c.contentHTML = h
	}
	return c
}

// probablyMainContent requires a positive keyword in class/id and no
// negative one. Bare semantic tags pass without keywords.
func probablyMainContent(m *goquery.Selection) bool {
	name := goquery.NodeName(m)
	class, _ := m.Attr("class")
	id, _ := m.Attr("id")
	marker := class + " " + id

	if longestNegative.MatchString(marker) {
		return false
	}
	if name == "article" || name == "main" {
		return true
	}
	return longestPositive.MatchString(marker)
}
