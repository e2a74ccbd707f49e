package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	t.Run("matching password", func(t *testing.T) {
		assert.NoError(t, h.Verify(hash, "secret123"))
	})

	t.Run("wrong password", func(t *testing.T) {
		assert.ErrorIs(t, h.Verify(hash, "secret124"), ErrPasswordMismatch)
	})

	t.Run("salted", func(t *testing.T) {
		other, err := h.Hash("secret123")
		require.NoError(t, err)
		assert.NotEqual(t, hash, other)
	})

	t.Run("malformed hash", func(t *testing.T) {
		err := h.Verify("not-a-hash", "secret123")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrPasswordMismatch)
	})
}

func TestNewPasswordHasher_Cost(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(0).cost)
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, 12, NewPasswordHasher(12).cost)

	h := NewPasswordHasher(DefaultBcryptCost)
	hash, err := h.Hash("secret123")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 10, cost)
}
