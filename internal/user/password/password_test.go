package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	ok, err := h.Verify("correct horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyMalformedHash(t *testing.T) {
	ok, err := NewHasher(bcrypt.MinCost).Verify("pw", "not-a-hash")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestHashEmpty(t *testing.T) {
	_, err := NewHasher(bcrypt.MinCost).Hash("")
	assert.Error(t, err)
}
