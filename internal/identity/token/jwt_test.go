package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "taskflow/pkg/domain"
	dErrors "taskflow/pkg/domain-errors"
)

var (
	issuedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	userID   = id.NewUserID()
)

func newService(now time.Time) *Service {
	return NewService("test-signing-key", "taskflow-test", 24*time.Hour,
		WithClock(func() time.Time { return now }))
}

func Test_IssueAndVerify(t *testing.T) {
	svc := newService(issuedAt.Add(time.Hour))
	issued, err := svc.Issue(userID, issuedAt)
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)
	assert.Equal(t, issuedAt.Add(24*time.Hour), issued.ExpiresAt)

	claims, err := svc.Verify(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, issued.JTI, claims.ID)
	assert.Equal(t, "taskflow-test", claims.Issuer)

	subject, err := claims.Subject()
	require.NoError(t, err)
	assert.Equal(t, userID, subject)
}

func Test_Verify_Expired(t *testing.T) {
	issued, err := newService(issuedAt).Issue(userID, issuedAt)
	require.NoError(t, err)

	_, err = newService(issuedAt.Add(25 * time.Hour)).Verify(issued.Token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeExpiredCredential))
}

func Test_Verify_Invalid(t *testing.T) {
	svc := newService(issuedAt)

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Verify("invalid-token-string")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidCredential))
	})

	t.Run("wrong key", func(t *testing.T) {
		issued, err := NewService("other-key", "taskflow-test", time.Hour).Issue(userID, issuedAt)
		require.NoError(t, err)
		_, err = svc.Verify(issued.Token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidCredential))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		issued, err := NewService("test-signing-key", "someone-else", time.Hour).Issue(userID, issuedAt)
		require.NoError(t, err)
		_, err = svc.Verify(issued.Token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidCredential))
	})

	t.Run("unsigned", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			UserID: userID.String(),
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "taskflow-test",
				ID:        "jti",
				ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
			},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.Verify(unsigned)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidCredential))
	})
}
