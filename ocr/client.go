// Package ocr is the last-resort extraction path for domains that defeat
// DOM scraping: capture the rendered page as screenshots, preprocess them
// for legibility, and read them with a vision OCR backend.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/presse/shield"
)

// ErrUnavailable is returned when no OCR backend is configured. The
// pipeline surfaces it instead of silently skipping the OCR path.
var ErrUnavailable = errors.New("ocr: backend not configured")

// Recognition is the backend's answer for one image.
type Recognition struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// ClientConfig configures the vision backend client.
type ClientConfig struct {
	// BaseURL of the OCR backend. Empty means OCR is unavailable.
	BaseURL string
	// Timeout per recognition call. Default: 60s; vision models are slow.
	Timeout time.Duration
	// RPS and Burst feed the rate limiter. Defaults: 2 rps, burst 2.
	RPS   float64
	Burst int

	Logger *slog.Logger
}

func (c *ClientConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.RPS <= 0 {
		c.RPS = 2
	}
	if c.Burst <= 0 {
		c.Burst = 2
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client calls the vision OCR backend over HTTP, behind a rate limiter,
// circuit breaker, and retry policy.
type Client struct {
	cfg   ClientConfig
	http  *http.Client
	guard *shield.Guard
}

// NewClient creates a Client. A client with no BaseURL is valid but
// fails every call with ErrUnavailable.
func NewClient(cfg ClientConfig) *Client {
	cfg.defaults()
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		guard: &shield.Guard{
			Limiter: shield.NewLimiter(cfg.RPS, cfg.Burst),
			Breaker: shield.NewBreaker(shield.BreakerConfig{}),
			Retry: shield.Policy{
				IsRetryable: func(err error) bool {
					return !errors.Is(err, shield.ErrBreakerOpen) && !errors.Is(err, ErrUnavailable)
				},
			},
		},
	}
}

// Available reports whether a backend is configured. A nil Client is
// simply unavailable.
func (c *Client) Available() bool { return c != nil && c.cfg.BaseURL != "" }

type recognizeRequest struct {
	Image  string `json:"image"` // base64 PNG
	Format string `json:"format"`
}

// Recognize sends one PNG to the backend.
func (c *Client) Recognize(ctx context.Context, png []byte) (*Recognition, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}

	var rec *Recognition
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		rec, err = c.recognizeOnce(ctx, png)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Client) recognizeOnce(ctx context.Context, png []byte) (*Recognition, error) {
	body, err := json.Marshal(recognizeRequest{
		Image:  base64.StdEncoding.EncodeToString(png),
		Format: "png",
	})
	if err != nil {
		return nil, fmt.Errorf("ocr: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/ocr", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ocr: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("ocr: backend http %d", resp.StatusCode)
	}

	var rec Recognition
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("ocr: decode response: %w", err)
	}
	return &rec, nil
}
