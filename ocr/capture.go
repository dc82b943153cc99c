package ocr

import (
	"context"
	"fmt"
	"time"
)

const (
	maxScrollCycles    = 25
	stableScrollCycles = 3
	scrollSettle       = 700 * time.Millisecond
	screenshotCount    = 6
)

// Pager is the slice of a browser session the capture step needs.
type Pager interface {
	ScrollToLoad(ctx context.Context, maxCycles, stableCycles int, settle time.Duration) (int, error)
	ScrollTo(ctx context.Context, y int) error
	Screenshot(ctx context.Context) ([]byte, error)
}

// Capture forces lazy content to render, then shoots the page at evenly
// spaced scroll offsets. Returns raw PNGs in top-to-bottom order.
func Capture(ctx context.Context, page Pager) ([][]byte, error) {
	height, err := page.ScrollToLoad(ctx, maxScrollCycles, stableScrollCycles, scrollSettle)
	if err != nil {
		return nil, fmt.Errorf("ocr: scroll to load: %w", err)
	}
	if height <= 0 {
		return nil, fmt.Errorf("ocr: page has no height")
	}

	offsets := captureOffsets(height, screenshotCount)
	shots := make([][]byte, 0, len(offsets))
	for _, y := range offsets {
		if err := page.ScrollTo(ctx, y); err != nil {
			return nil, err
		}
		img, err := page.Screenshot(ctx)
		if err != nil {
			return nil, err
		}
		shots = append(shots, img)
	}
	return shots, nil
}

// captureOffsets spaces count offsets evenly from the top of the page to
// the bottom of the last viewport.
func captureOffsets(height, count int) []int {
	if count <= 1 || height <= 0 {
		return []int{0}
	}
	step := height / count
	offsets := make([]int, count)
	for i := range offsets {
		offsets[i] = i * step
	}
	return offsets
}
