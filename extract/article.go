package extract

import (
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/presse/recipe"
)

// Paragraphs shorter than this are widget captions and share buttons,
// not article prose.
const minParagraphLen = 20

// Engine runs recipe-driven and smart extraction over parsed documents.
// It is stateless across calls and safe for concurrent use.
type Engine struct {
	logger          *slog.Logger
	render          *Renderer
	strategyTimeout time.Duration
}

// NewEngine creates an Engine. A nil logger falls back to slog.Default.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger:          logger,
		render:          NewRenderer(),
		strategyTimeout: defaultStrategyTimeout,
	}
}

// Article applies a recipe's selectors to an article page. The result is
// successful only when both title and content validate.
func (e *Engine) Article(doc *goquery.Document, rec *recipe.Recipe, pageURL string) (*Result, error) {
	root := doc.Selection

	title := rec.Clean(rec.Selectors.Title.Extract(root))

	contentHTML := ""
	content := ""
	matches := root.Find(rec.Selectors.Content.CSS)
	if matches.Length() > 0 {
		content = paragraphText(matches)
		if content == "" {
			content = collapseSpace(matches.Text())
		}
		if h, err := goquery.OuterHtml(matches.First()); err == nil {
			contentHTML = h
		}
	}
	content = rec.Clean(content)

	res := &Result{
		Title:    title,
		Content:  content,
		Strategy: StrategyRecipe,
	}
	if !rec.Selectors.Date.IsZero() {
		res.Date = rec.Selectors.Date.Extract(root)
	}
	if !rec.Selectors.Author.IsZero() {
		res.Author = rec.Selectors.Author.Extract(root)
	}
	if !rec.Selectors.Images.IsZero() {
		res.Images = resolveAll(rec.Selectors.Images.ExtractAll(root), pageURL)
	}

	pageHTML, _ := doc.Html()
	pw := DetectPaywall(pageHTML, content)
	res.HasPaywall = pw.Detected
	res.PaywallConfidence = pw.Confidence

	res.Success = IsValidTitle(title) && IsValidContent(content) && len(content) > minContentLen
	res.Confidence = Score(Found{
		Strategy:         StrategyRecipe,
		ContentLen:       len(content),
		HasTitle:         title != "",
		RecipeConfidence: rec.Confidence,
	})
	if !res.Success {
		return res, ErrNoMatch
	}
	if contentHTML != "" {
		res.Markdown = e.render.Render(contentHTML, pageURL)
	}
	return res, nil
}

// paragraphText joins the text of all <p> descendants, dropping short
// paragraphs. Preferred over raw element text, which picks up nested
// widget and ad copy.
func paragraphText(sel *goquery.Selection) string {
	var parts []string
	sel.Find("p").Each(func(_ int, p *goquery.Selection) {
		t := collapseSpace(p.Text())
		if len(t) >= minParagraphLen {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "\n\n")
}

// resolveAll resolves possibly-relative URLs against base, dropping
// anything unparseable.
func resolveAll(refs []string, base string) []string {
	b, err := url.Parse(base)
	if err != nil {
		return refs
	}
	var out []string
	for _, ref := range refs {
		u, err := url.Parse(strings.TrimSpace(ref))
		if err != nil || u.String() == "" {
			continue
		}
		out = append(out, b.ResolveReference(u).String())
	}
	return out
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
