package ratelimit

import "time"

// Lockout tracks failed logins for one key inside the current window.
type Lockout struct {
	Key         string     `json:"key"`
	Failures    int        `json:"failures"`
	WindowStart time.Time  `json:"window_start"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
}

// IsLockedAt reports whether the key is locked at now.
func (l *Lockout) IsLockedAt(now time.Time) bool {
	return l.LockedUntil != nil && now.Before(*l.LockedUntil)
}

// expiresAt is when the record can be forgotten.
func (l *Lockout) expiresAt(window time.Duration) time.Time {
	end := l.WindowStart.Add(window)
	if l.LockedUntil != nil && l.LockedUntil.After(end) {
		return *l.LockedUntil
	}
	return end
}
