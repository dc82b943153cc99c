package extract

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// Renderer converts a winning content region to markdown. Sanitization
// runs first so script/style/event-handler debris never reaches the
// converter or the caller.
type Renderer struct {
	sanitizer *bluemonday.Policy
	converter *converter.Converter
}

// NewRenderer creates a Renderer with the article-safe element set.
func NewRenderer() *Renderer {
	policy := bluemonday.UGCPolicy()
	return &Renderer{
		sanitizer: policy,
		converter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Render sanitizes html and converts it to markdown. pageURL resolves
// relative links. Returns "" when nothing survives conversion.
func (r *Renderer) Render(html, pageURL string) string {
	clean := r.sanitizer.Sanitize(html)
	if strings.TrimSpace(clean) == "" {
		return ""
	}
	md, err := r.converter.ConvertString(clean, converter.WithDomain(pageURL))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(md)
}
