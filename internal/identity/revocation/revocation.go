// Package revocation records the token ids a logout has invalidated.
//
// Entries only need to outlive the token they revoke, so every backend
// stores them with a TTL equal to the token's remaining lifetime. A
// non-positive TTL means the token has already expired and nothing is stored.
package revocation

import "time"

// Clock returns the current time.
type Clock func() time.Time

func skip(jti string, ttl time.Duration) bool {
	return jti == "" || ttl <= 0
}
