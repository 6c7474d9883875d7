package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFService(t *testing.T) {
	service := NewCSRFService()

	secret, err := service.NewSecret()
	require.NoError(t, err)
	assert.Len(t, secret, 32)

	otherSecret, err := service.NewSecret()
	require.NoError(t, err)

	token, err := service.IssueToken(secret)
	require.NoError(t, err)

	t.Run("issued token verifies", func(t *testing.T) {
		assert.True(t, service.VerifyToken(secret, token))
	})

	t.Run("tokens are not reused", func(t *testing.T) {
		second, err := service.IssueToken(secret)
		require.NoError(t, err)
		assert.NotEqual(t, token, second)
		assert.True(t, service.VerifyToken(secret, second))
	})

	t.Run("other session secret rejects", func(t *testing.T) {
		assert.False(t, service.VerifyToken(otherSecret, token))
	})

	t.Run("missing secret rejects", func(t *testing.T) {
		assert.False(t, service.VerifyToken(nil, token))
	})

	t.Run("mutated token rejects", func(t *testing.T) {
		nonce, signature, _ := strings.Cut(token, ".")
		flipped := []byte(signature)
		if flipped[0] == 'A' {
			flipped[0] = 'B'
		} else {
			flipped[0] = 'A'
		}
		assert.False(t, service.VerifyToken(secret, nonce+"."+string(flipped)))
		assert.False(t, service.VerifyToken(secret, token+"x"))
	})

	t.Run("malformed tokens reject", func(t *testing.T) {
		for _, malformed := range []string{"", ".", "abc", "abc.def", "!!!.???", token[:10]} {
			assert.False(t, service.VerifyToken(secret, malformed), malformed)
		}
	})

	t.Run("issue without secret fails", func(t *testing.T) {
		_, err := service.IssueToken(nil)
		assert.Error(t, err)
	})
}
