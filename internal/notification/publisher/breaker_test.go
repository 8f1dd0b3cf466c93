package publisher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := NewBreaker(2, time.Minute)
	b.clock = func() time.Time { return now }

	b.RecordFailure()
	assert.True(t, b.Allow(), "below threshold")

	b.RecordFailure()
	assert.True(t, b.IsOpen())
	assert.False(t, b.Allow())

	now = now.Add(time.Minute)
	assert.True(t, b.Allow(), "probe after cooldown")
	assert.False(t, b.Allow(), "only one probe while half-open")

	b.RecordSuccess()
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
}

func TestBreakerDefaults(t *testing.T) {
	b := NewBreaker(0, 0)
	assert.Equal(t, 5, b.threshold)
	assert.Equal(t, time.Minute, b.cooldown)
}
