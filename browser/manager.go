// Package browser manages headless Chrome for recipe execution and the
// screenshot OCR path: launch with a bounded flag set, connect via Rod,
// hand out stealth pages from a bounded session pool, and guarantee
// release on every path.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// ErrClosed is returned once the manager has shut down.
var ErrClosed = errors.New("browser: manager is closed")

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// PoolSize bounds concurrent sessions. Default: 4.
	PoolSize int

	// NavTimeout bounds a single navigation. Default: 30s.
	NavTimeout time.Duration

	// Viewport for all sessions. OCR capture needs high resolution and
	// a raised device pixel ratio. Defaults: 1920x1080 at DPR 2.
	ViewportWidth    int
	ViewportHeight   int
	DevicePixelRatio float64

	// ResourceBlocking lists resource types to block (images, fonts,
	// media, stylesheets). Never block images on OCR sessions.
	ResourceBlocking []string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.PoolSize <= 0 {
		c.PoolSize = 4
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = 1920
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = 1080
	}
	if c.DevicePixelRatio <= 0 {
		c.DevicePixelRatio = 2
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns the Chrome process and the session pool.
type Manager struct {
	cfg    Config
	tokens chan struct{}

	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager creates a Manager. Call Start before acquiring sessions.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	m := &Manager{
		cfg:    cfg,
		tokens: make(chan struct{}, cfg.PoolSize),
	}
	for range cfg.PoolSize {
		m.tokens <- struct{}{}
	}
	return m
}

// Start launches Chrome or connects to a remote instance.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.browser != nil {
		return nil
	}

	wsURL := m.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled").
			Set("disable-gpu").
			Set("no-first-run").
			Set("mute-audio")
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		m.cfg.Logger.Info("browser: launched local chrome", "url", wsURL)
	} else {
		m.cfg.Logger.Info("browser: connecting to remote", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if m.lnch != nil {
			m.lnch.Cleanup()
			m.lnch = nil
		}
		return fmt.Errorf("browser: connect: %w", err)
	}
	m.browser = b
	return nil
}

// Acquire blocks for a pool slot, opens a stealth page, and returns a
// Session. The caller must Close it on every path.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	m.mu.RLock()
	b, closed := m.browser, m.closed
	m.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if b == nil {
		return nil, errors.New("browser: not started")
	}

	select {
	case <-m.tokens:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	page, err := stealth.Page(b)
	if err != nil {
		m.tokens <- struct{}{}
		return nil, fmt.Errorf("browser: open page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.ViewportWidth,
		Height:            m.cfg.ViewportHeight,
		DeviceScaleFactor: m.cfg.DevicePixelRatio,
	}); err != nil {
		page.Close()
		m.tokens <- struct{}{}
		return nil, fmt.Errorf("browser: set viewport: %w", err)
	}

	var stopHijack func()
	if len(m.cfg.ResourceBlocking) > 0 {
		stopHijack = blockResources(page, m.cfg.ResourceBlocking)
	}

	return &Session{
		page:       page,
		navTimeout: m.cfg.NavTimeout,
		stopHijack: stopHijack,
		release:    func() { m.tokens <- struct{}{} },
		logger:     m.cfg.Logger,
	}, nil
}

// Close shuts down Chrome. In-flight sessions fail on next use.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return nil
}
