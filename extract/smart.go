package extract

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const defaultStrategyTimeout = 5 * time.Second

// candidate is a strategy's raw output before validation and scoring.
type candidate struct {
	title       string
	content     string
	contentHTML string
	date        string
	author      string
	images      []string
}

type strategyFn func(doc *goquery.Document, pageURL string) *candidate

// Smart runs the four no-recipe strategies in fixed order, stopping at
// the first whose output validates. Each attempt is bounded by a hard
// timeout; a timed-out strategy counts as failed and is never retried.
// When everything fails the result asks for a human-authored recipe.
func (e *Engine) Smart(ctx context.Context, doc *goquery.Document, pageURL string) (*Result, error) {
	strategies := []struct {
		name Strategy
		fn   strategyFn
	}{
		{StrategyStructured, structuredData},
		{StrategySemantic, semanticHTML},
		{StrategyDensity, textDensity},
		{StrategyLongest, longestContent},
	}

	pageHTML, _ := doc.Html()
	var attempts []Attempt

	for _, s := range strategies {
		if ctx.Err() != nil {
			break
		}
		cand, att := e.runStrategy(ctx, s.name, s.fn, doc, pageURL)
		attempts = append(attempts, att)
		if att.Err != nil || att.TimedOut {
			e.logger.Warn("strategy failed",
				"strategy", string(s.name),
				"timed_out", att.TimedOut,
				"error", att.Err)
			continue
		}
		if cand == nil || !IsValidTitle(cand.title) || !IsValidContent(cand.content) {
			continue
		}

		pw := DetectPaywall(pageHTML, cand.content)
		res := &Result{
			Success:             true,
			Title:               cand.title,
			Content:             cand.content,
			Date:                cand.date,
			Author:              cand.author,
			Images:              resolveAll(cand.images, pageURL),
			Strategy:            s.name,
			HasPaywall:          pw.Detected,
			PaywallConfidence:   pw.Confidence,
			AttemptedStrategies: attemptNames(attempts),
			Confidence: Score(Found{
				Strategy:   s.name,
				ContentLen: len(cand.content),
				HasTitle:   true,
			}),
		}
		if cand.contentHTML != "" {
			res.Markdown = e.render.Render(cand.contentHTML, pageURL)
		}
		return res, nil
	}

	return &Result{
		NeedsHelp:           true,
		AttemptedStrategies: attemptNames(attempts),
	}, ErrNoContent
}

// runStrategy executes one strategy under its timeout. The caller's
// deadline propagates: the effective budget is the smaller of the two.
func (e *Engine) runStrategy(ctx context.Context, name Strategy, fn strategyFn, doc *goquery.Document, pageURL string) (*candidate, Attempt) {
	ctx, cancel := context.WithTimeout(ctx, e.strategyTimeout)
	defer cancel()

	done := make(chan *candidate, 1)
	go func() {
		defer func() {
			if recover() != nil {
				done <- nil
			}
		}()
		done <- fn(doc, pageURL)
	}()

	select {
	case cand := <-done:
		return cand, Attempt{Name: name}
	case <-ctx.Done():
		return nil, Attempt{Name: name, TimedOut: true, Err: ctx.Err()}
	}
}

func attemptNames(attempts []Attempt) []string {
	out := make([]string, len(attempts))
	for i, a := range attempts {
		out[i] = string(a.Name)
	}
	return out
}
