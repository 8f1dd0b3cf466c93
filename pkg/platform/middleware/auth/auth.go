package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	id "taskflow/pkg/domain"
	dErrors "taskflow/pkg/domain-errors"
	"taskflow/pkg/platform/httputil"
	"taskflow/pkg/requestcontext"
)

// Caller is the identity resolved from a verified bearer credential.
type Caller struct {
	UserID    id.UserID
	JTI       string
	ExpiresAt time.Time
}

// Authenticator resolves a raw bearer credential to a caller.
// Implementations return missing/invalid/expired credential domain errors.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (*Caller, error)
}

const (
	bearerPrefix    = "Bearer "
	tokenHeaderName = "X-Auth-Token"
)

// Credential extracts the raw credential from a request. The Authorization
// header wins; X-Auth-Token is read only when Authorization is absent. An
// Authorization header without the Bearer scheme is an invalid credential.
// No credential at all yields an empty string and a nil error.
func Credential(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return strings.TrimSpace(r.Header.Get(tokenHeaderName)), nil
	}
	after, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return "", dErrors.New(dErrors.CodeInvalidCredential, "malformed authorization header")
	}
	return strings.TrimSpace(after), nil
}

// RequireAuth rejects requests without a valid bearer credential and stores
// the caller in the request context for handlers.
func RequireAuth(authenticator Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			credential, err := Credential(r)
			var caller *Caller
			if err == nil {
				caller, err = authenticator.Authenticate(ctx, credential)
			}
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeStoreUnavailable) {
					logger.ErrorContext(ctx, "failed to check credential",
						"error", err,
						"request_id", requestID,
					)
				} else {
					logger.WarnContext(ctx, "unauthorized access",
						"error", err,
						"request_id", requestID,
					)
				}
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithUserID(ctx, caller.UserID)
			ctx = requestcontext.WithToken(ctx, requestcontext.TokenInfo{JTI: caller.JTI, ExpiresAt: caller.ExpiresAt})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
