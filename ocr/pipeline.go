package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Pipeline glues the OCR path together: capture screenshots, preprocess
// each, recognize, and reconstruct titles from the combined text.
type Pipeline struct {
	client *Client
	logger *slog.Logger
}

// NewPipeline creates a Pipeline around a backend client.
func NewPipeline(client *Client, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{client: client, logger: logger}
}

// Available reports whether a recognition backend is configured.
func (p *Pipeline) Available() bool { return p.client.Available() }

// Output is an OCR run over one page.
type Output struct {
	// Text is the concatenated raw recognition of all screenshots.
	Text string
	// Titles are the deduplicated headline candidates.
	Titles []string
	// Confidence is the lowest per-image backend confidence.
	Confidence float64
}

// Run executes the pipeline against an already-navigated page. Failing
// a single screenshot is tolerated; failing all of them is not.
func (p *Pipeline) Run(ctx context.Context, page Pager) (*Output, error) {
	if !p.client.Available() {
		return nil, ErrUnavailable
	}

	shots, err := Capture(ctx, page)
	if err != nil {
		return nil, err
	}

	var texts []string
	confidence := 1.0
	for i, shot := range shots {
		processed, err := Preprocess(shot)
		if err != nil {
			p.logger.Warn("ocr: preprocess failed", "screenshot", i, "error", err)
			continue
		}
		rec, err := p.client.Recognize(ctx, processed)
		if err != nil {
			p.logger.Warn("ocr: recognize failed", "screenshot", i, "error", err)
			continue
		}
		if strings.TrimSpace(rec.Text) == "" {
			continue
		}
		texts = append(texts, rec.Text)
		if rec.Confidence < confidence {
			confidence = rec.Confidence
		}
	}

	if len(texts) == 0 {
		return nil, fmt.Errorf("ocr: no text recognized in %d screenshots", len(shots))
	}

	combined := strings.Join(texts, "\n")
	return &Output{
		Text:       combined,
		Titles:     Titles(combined),
		Confidence: confidence,
	}, nil
}
