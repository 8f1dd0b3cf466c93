// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; handlers read them and pass the caller explicitly
// into services. Services never read the caller from context, so every domain
// operation states whose authority it runs under.
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithUserID(ctx, callerID)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in handlers (read values):
//
//	caller := requestcontext.UserID(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "taskflow/pkg/domain"
)

type (
	userIDKey      struct{}
	tokenKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

var (
	ContextKeyUserID      = userIDKey{}
	ContextKeyToken       = tokenKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Caller
// -----------------------------------------------------------------------------

// UserID retrieves the authenticated caller from the context.
// Returns the zero value (nil UUID) if not set.
func UserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(ContextKeyUserID).(id.UserID); ok {
		return userID
	}
	return id.UserID{}
}

// WithUserID injects the authenticated caller into the context.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// TokenInfo identifies the credential the caller presented.
type TokenInfo struct {
	JTI       string
	ExpiresAt time.Time
}

// Token retrieves the presented token's identity, used by logout.
func Token(ctx context.Context) (TokenInfo, bool) {
	info, ok := ctx.Value(ContextKeyToken).(TokenInfo)
	return info, ok
}

// WithToken injects the presented token's identity into the context.
func WithToken(ctx context.Context, info TokenInfo) context.Context {
	return context.WithValue(ctx, ContextKeyToken, info)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (startup reconciliation, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
