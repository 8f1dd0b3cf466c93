package publisher

import (
	"sync"
	"time"
)

// Breaker stops producing while the broker keeps failing. After cooldown one
// publish is let through; its outcome closes or reopens the circuit.
type Breaker struct {
	mu sync.Mutex

	threshold int
	cooldown  time.Duration
	clock     func() time.Time

	failures  int
	open      bool
	openUntil time.Time
}

// NewBreaker opens after threshold consecutive failures and stays open for
// cooldown. Non-positive arguments fall back to 5 failures and one minute.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, clock: time.Now}
}

// Allow reports whether a publish may be attempted.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return true
	}
	if b.clock().Before(b.openUntil) {
		return false
	}
	// half-open: one probe, then wait for its result
	b.openUntil = b.clock().Add(b.cooldown)
	return true
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
}

func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.threshold {
		b.open = true
		b.openUntil = b.clock().Add(b.cooldown)
	}
}

// IsOpen reports whether publishes are currently being dropped.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}
