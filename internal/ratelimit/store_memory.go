package ratelimit

import (
	"context"
	"sync"
	"time"
)

// InMemory keeps lockout records in process. Records past their ttl are
// dropped on access.
type InMemory struct {
	mu      sync.Mutex
	records map[string]memoryRecord
	clock   func() time.Time
}

type memoryRecord struct {
	lockout   Lockout
	expiresAt time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[string]memoryRecord), clock: time.Now}
}

func (s *InMemory) Get(_ context.Context, key string) (*Lockout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	if !s.clock().Before(rec.expiresAt) {
		delete(s.records, key)
		return nil, nil
	}
	out := rec.lockout
	return &out, nil
}

func (s *InMemory) Save(_ context.Context, record *Lockout, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Key] = memoryRecord{lockout: *record, expiresAt: s.clock().Add(ttl)}
	return nil
}

func (s *InMemory) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}
