// Package fetch retrieves article HTML over plain HTTP. It is the cheap
// path tried before a headless browser: bounded reads, SSRF-checked
// redirects, and a retry policy that gives up on client errors.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hazyhaar/presse/shield"
)

const maxRedirects = 5

// Result is a fetched page.
type Result struct {
	Body        []byte
	StatusCode  int
	FinalURL    string // after redirects
	ContentType string
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: http %d", e.Code)
}

// Retryable reports whether the status is worth another attempt.
// Client errors are terminal, except 429.
func (e *StatusError) Retryable() bool {
	if e.Code == http.StatusTooManyRequests {
		return true
	}
	return e.Code < 400 || e.Code >= 500
}

// Config configures the fetcher.
type Config struct {
	Timeout  time.Duration // per-request timeout. Default: 30s.
	MaxBytes int64         // response body cap. Default: 10MB.
	// UserAgent sent with requests.
	UserAgent string
	// URLValidator runs before each request and each redirect hop
	// (SSRF prevention). Default: ValidateURL.
	URLValidator func(string) error
	// Retry applies to transient failures. Zero value gets defaults
	// with RetryableError as the predicate.
	Retry shield.Policy
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "presse/1.0"
	}
	if c.URLValidator == nil {
		c.URLValidator = ValidateURL
	}
	if c.Retry.IsRetryable == nil {
		c.Retry.IsRetryable = RetryableError
	}
}

// RetryableError is the default retry predicate: network errors retry,
// HTTP client errors do not (429 excepted).
func RetryableError(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}

// Fetcher performs HTTP GETs with redirect and body-size caps.
type Fetcher struct {
	client *http.Client
	config Config
}

// New creates a Fetcher. Redirect targets are re-validated so a public
// URL cannot bounce requests into private address space.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	validate := cfg.URLValidator
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		},
		config: cfg,
	}
}

// Fetch retrieves url, retrying per the configured policy.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	if err := f.config.URLValidator(url); err != nil {
		return nil, fmt.Errorf("fetch: URL blocked: %w", err)
	}

	var res *Result
	err := f.config.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		res, err = f.fetchOnce(ctx, url)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}

	return &Result{
		Body:        body,
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
