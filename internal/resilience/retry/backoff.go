package retry

import (
	"sync"
	"time"
)

// BackoffConfig configures a Backoff.
//
// A Multiplier of 1 (or Max equal to Initial) gives a fixed delay, which is the
// default reconnect behavior of the feed supervisor.
type BackoffConfig struct {
	Initial        time.Duration
	Max            time.Duration
	Multiplier     float64
	JitterFraction float64
}

// FixedBackoff returns a config that always waits d.
func FixedBackoff(d time.Duration) BackoffConfig {
	return BackoffConfig{Initial: d, Max: d, Multiplier: 1}
}

// Backoff hands out successive delays for an unbounded retry loop.
// It is safe for concurrent use.
type Backoff struct {
	mu       sync.Mutex
	cfg      BackoffConfig
	current  time.Duration
	attempts int
}

// NewBackoff creates a Backoff. Invalid values are normalised: a non-positive
// Initial becomes one second, Max is raised to at least Initial, and a
// Multiplier below 1 becomes 1.
func NewBackoff(cfg BackoffConfig) *Backoff {
	if cfg.Initial <= 0 {
		cfg.Initial = time.Second
	}
	if cfg.Max < cfg.Initial {
		cfg.Max = cfg.Initial
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	return &Backoff{cfg: cfg, current: cfg.Initial}
}

// Next returns the delay to wait now and advances the policy.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := addJitter(b.current, b.cfg.JitterFraction)

	b.attempts++
	next := time.Duration(float64(b.current) * b.cfg.Multiplier)
	if next > b.cfg.Max {
		next = b.cfg.Max
	}
	b.current = next

	return delay
}

// Reset returns the policy to its initial delay. Call it after a healthy session.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.cfg.Initial
	b.attempts = 0
}

// Attempts returns how many delays were handed out since the last Reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}
