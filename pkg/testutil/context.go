package testutil

import (
	"net/http"
	"time"

	id "taskflow/pkg/domain"
	"taskflow/pkg/requestcontext"
)

// WithCaller adds an authenticated caller to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithCaller(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// WithAuth adds the caller and the presented token identity to the request
// context, the state handlers see after RequireAuth.
func WithAuth(req *http.Request, userID id.UserID, jti string, expiresAt time.Time) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithToken(ctx, requestcontext.TokenInfo{JTI: jti, ExpiresAt: expiresAt})
	return req.WithContext(ctx)
}
