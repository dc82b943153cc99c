package shield

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned while the breaker short-circuits calls.
var ErrBreakerOpen = errors.New("shield: circuit breaker open")

// BreakerState is the breaker's position.
type BreakerState int

const (
	Closed BreakerState = iota
	Open
	HalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// BreakerConfig tunes a Breaker.
type BreakerConfig struct {
	// FailureThreshold opens the breaker after this many consecutive
	// failures. Default: 5.
	FailureThreshold int
	// CoolDown is how long the breaker stays open before allowing a
	// half-open probe. Default: 30s.
	CoolDown time.Duration
	// Window bounds how close together the consecutive failures must
	// be; a quiet period resets the streak. Default: 1m.
	Window time.Duration

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

func (c *BreakerConfig) defaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.CoolDown <= 0 {
		c.CoolDown = 30 * time.Second
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}

// Breaker is a closed → open → half-open circuit breaker. While open it
// fails fast; after the cool-down one probe call is let through, and its
// outcome closes or re-opens the circuit.
type Breaker struct {
	cfg BreakerConfig

	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
	openedAt    time.Time
	probing     bool
}

// NewBreaker creates a Breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	cfg.defaults()
	return &Breaker{cfg: cfg}
}

// State reports the current position, advancing open → half-open when the
// cool-down has elapsed.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.state
}

// Allow reports whether a call may proceed now. In half-open state only
// the single probe call is admitted.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()

	switch b.state {
	case Open:
		return ErrBreakerOpen
	case HalfOpen:
		if b.probing {
			return ErrBreakerOpen
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

// Record feeds a call outcome back into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.cfg.Clock()

	if err == nil {
		b.state = Closed
		b.failures = 0
		b.probing = false
		return
	}

	if b.state == HalfOpen {
		// Probe failed: back to open, restart the cool-down.
		b.state = Open
		b.openedAt = now
		b.probing = false
		return
	}

	// A quiet period resets the consecutive-failure streak.
	if !b.lastFailure.IsZero() && now.Sub(b.lastFailure) > b.cfg.Window {
		b.failures = 0
	}
	b.lastFailure = now
	b.failures++

	if b.failures >= b.cfg.FailureThreshold {
		b.state = Open
		b.openedAt = now
	}
}

// Call runs fn under the breaker.
func (b *Breaker) Call(fn func() error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	err := fn()
	b.Record(err)
	return err
}

// advance moves open → half-open once the cool-down has elapsed.
// Caller holds b.mu.
func (b *Breaker) advance() {
	if b.state == Open && b.cfg.Clock().Sub(b.openedAt) >= b.cfg.CoolDown {
		b.state = HalfOpen
		b.probing = false
	}
}
