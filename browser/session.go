package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Session is one pooled page. Close always returns the pool slot, even
// after a failed navigation.
type Session struct {
	page       *rod.Page
	navTimeout time.Duration
	stopHijack func()
	logger     *slog.Logger

	closeOnce sync.Once
	release   func()
}

// Navigate loads url and waits for the load event, both bounded by the
// navigation timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.navTimeout)
	defer cancel()

	if err := s.page.Context(navCtx).Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := s.page.Context(navCtx).WaitLoad(); err != nil {
		// A stalled load event is common on ad-heavy pages; the DOM is
		// usually usable anyway.
		s.logger.Warn("browser: wait load timeout", "url", url, "error", err)
	}
	return nil
}

// HTML serialises the rendered DOM.
func (s *Session) HTML(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: get DOM: %w", err)
	}
	return res.Value.Str(), nil
}

// Metrics reads the page's scroll geometry via the measurement RPC.
func (s *Session) Metrics(ctx context.Context) (PageMetrics, error) {
	res, err := s.page.Context(ctx).Eval(metricsScript)
	if err != nil {
		return PageMetrics{}, fmt.Errorf("browser: metrics: %w", err)
	}
	return PageMetrics{
		ScrollHeight:   res.Value.Get("scrollHeight").Int(),
		ViewportHeight: res.Value.Get("viewportHeight").Int(),
		ScrollY:        res.Value.Get("scrollY").Int(),
	}, nil
}

// ScrollTo scrolls the viewport to vertical offset y and gives the page
// a beat to settle.
func (s *Session) ScrollTo(ctx context.Context, y int) error {
	_, err := s.page.Context(ctx).Eval(scrollScript, y)
	if err != nil {
		return fmt.Errorf("browser: scroll: %w", err)
	}
	return nil
}

// ScrollToLoad forces lazy content to render: scroll to the bottom, wait,
// measure, and stop once the page height has been stable for
// stableCycles consecutive measurements or maxCycles is reached.
// Returns the final page height.
func (s *Session) ScrollToLoad(ctx context.Context, maxCycles, stableCycles int, settle time.Duration) (int, error) {
	lastHeight := 0
	stable := 0

	for i := 0; i < maxCycles; i++ {
		if err := ctx.Err(); err != nil {
			return lastHeight, err
		}

		m, err := s.Metrics(ctx)
		if err != nil {
			return lastHeight, err
		}
		if err := s.ScrollTo(ctx, m.ScrollHeight); err != nil {
			return lastHeight, err
		}
		if err := sleepCtx(ctx, settle); err != nil {
			return lastHeight, err
		}

		m, err = s.Metrics(ctx)
		if err != nil {
			return lastHeight, err
		}
		if m.ScrollHeight <= lastHeight {
			stable++
			if stable >= stableCycles {
				return m.ScrollHeight, nil
			}
		} else {
			stable = 0
		}
		lastHeight = m.ScrollHeight
	}
	return lastHeight, nil
}

// Screenshot captures the current viewport as lossless PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	img, err := s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("browser: screenshot: %w", err)
	}
	return img, nil
}

// Close closes the page and returns the pool slot. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.stopHijack != nil {
			s.stopHijack()
		}
		if s.page != nil {
			if err := s.page.Close(); err != nil {
				s.logger.Warn("browser: close page", "error", err)
			}
		}
		s.release()
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
