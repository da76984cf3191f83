package realtime

import (
	"sync"
	"time"
)

// Reconnect policy defaults.
const (
	// DefaultRetryInterval is the fixed wait between reconnect attempts.
	DefaultRetryInterval = 3 * time.Second

	// DefaultMaxAttempts is the number of reconnect attempts before the
	// client gives up and reports the orphaned topic set.
	DefaultMaxAttempts = 8
)

// ReconnectConfig customizes the reconnect policy.
type ReconnectConfig struct {
	// Interval is the fixed wait between attempts (default: 3s).
	Interval time.Duration

	// MaxAttempts bounds consecutive attempts (default: 8).
	MaxAttempts int
}

// ReconnectPolicy decides retry timing after a connection failure.
// The sequence is fixed-interval and bounded: NextDelay hands out delays
// for attempts 1..MaxAttempts and then signals exhaustion. A successful
// handshake resets the counter.
type ReconnectPolicy struct {
	mu sync.Mutex

	interval    time.Duration
	maxAttempts int
	attempts    int
}

// NewReconnectPolicy creates a policy with default settings.
func NewReconnectPolicy() *ReconnectPolicy {
	return NewReconnectPolicyWithConfig(ReconnectConfig{})
}

// NewReconnectPolicyWithConfig creates a policy with custom settings.
func NewReconnectPolicyWithConfig(cfg ReconnectConfig) *ReconnectPolicy {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRetryInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &ReconnectPolicy{
		interval:    cfg.Interval,
		maxAttempts: cfg.MaxAttempts,
	}
}

// NextDelay returns the wait before the next reconnect attempt and advances
// the attempt counter. ok is false once the attempt budget is exhausted.
func (p *ReconnectPolicy) NextDelay() (delay time.Duration, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.attempts >= p.maxAttempts {
		return 0, false
	}
	p.attempts++
	return p.interval, true
}

// Attempts returns the attempt count since the last reset.
func (p *ReconnectPolicy) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

// Reset resets the attempt counter.
// Call this after a successful handshake.
func (p *ReconnectPolicy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts = 0
}
