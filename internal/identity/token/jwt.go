// Package token issues and verifies the HS256 bearer tokens callers present.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "taskflow/pkg/domain"
	dErrors "taskflow/pkg/domain-errors"
)

// Claims represents the JWT claims for our access tokens
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Issued is a signed token with the identity it carries.
type Issued struct {
	Token     string    `json:"token"`
	JTI       string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service handles JWT creation and validation
type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	clock      func() time.Time
}

type Option func(*Service)

// WithClock overrides the clock used to check expiry.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewService(signingKey, issuer string, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs a token for userID valid from now for the configured lifetime.
func (s *Service) Issue(userID id.UserID, now time.Time) (*Issued, error) {
	jti := uuid.NewString()
	expiresAt := now.Add(s.ttl)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        jti,
		},
	}).SignedString(s.signingKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return &Issued{Token: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}

// Verify checks signature, issuer, and expiry and returns the claims.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeExpiredCredential, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeInvalidCredential, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeInvalidCredential, "invalid token claims")
	}
	if claims.ID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidCredential, "token has no id")
	}
	return claims, nil
}

// Subject returns the user the claims were issued to.
func (c *Claims) Subject() (id.UserID, error) {
	userID, err := id.ParseUserID(c.UserID)
	if err != nil {
		return id.UserID{}, dErrors.New(dErrors.CodeInvalidCredential, "invalid token subject")
	}
	return userID, nil
}
