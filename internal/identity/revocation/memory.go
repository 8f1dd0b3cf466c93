package revocation

import (
	"context"
	"sync"
	"time"
)

// InMemory is a process-local revocation list with lazy expiry.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	clock   Clock
}

type InMemoryOption func(*InMemory)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) InMemoryOption {
	return func(l *InMemory) {
		if clock != nil {
			l.clock = clock
		}
	}
}

func NewInMemory(opts ...InMemoryOption) *InMemory {
	l := &InMemory{entries: make(map[string]time.Time), clock: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *InMemory) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if skip(jti, ttl) {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	for k, exp := range l.entries {
		if !now.Before(exp) {
			delete(l.entries, k)
		}
	}
	l.entries[jti] = now.Add(ttl)
	return nil
}

func (l *InMemory) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	exp, ok := l.entries[jti]
	return ok && l.clock().Before(exp), nil
}
