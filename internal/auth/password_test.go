package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndCompare(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(bcrypt.MinCost)
	hash, salt, err := h.Hash("secret1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, salt))
	assert.Len(t, salt, 29)
	assert.True(t, h.Compare("secret1", hash))
	assert.False(t, h.Compare("secret2", hash))
	assert.False(t, h.Compare("secret1", "not-a-bcrypt-hash"))
}

func TestBcryptHasher_SaltsDiffer(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(bcrypt.MinCost)
	first, firstSalt, err := h.Hash("same")
	require.NoError(t, err)
	second, secondSalt, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, firstSalt, secondSalt)
}

func TestBcryptHasher_Cost(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, DefaultCost, NewBcryptHasher(bcrypt.MaxCost+1).cost)

	h := NewBcryptHasher(bcrypt.MinCost)
	hash, _, err := h.Hash("pw")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestBcryptHasher_EmptyPassword(t *testing.T) {
	t.Parallel()

	_, _, err := NewBcryptHasher(bcrypt.MinCost).Hash("")
	require.Error(t, err)
}

func TestSaltOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", SaltOf("short"))
	assert.Equal(t, "$2a$12$abcdefghijklmnopqrstuv", SaltOf("$2a$12$abcdefghijklmnopqrstuvDIGESTDIGEST"))
}

func TestLockoutPolicy(t *testing.T) {
	t.Parallel()

	p := NewLockoutPolicy(0)
	assert.Equal(t, DefaultLockoutThreshold, p.Threshold)
	assert.False(t, p.ShouldLock(4))
	assert.True(t, p.ShouldLock(5))
	assert.True(t, p.ShouldLock(6))
	assert.Equal(t, 1, p.Remaining(4))
	assert.Equal(t, 0, p.Remaining(7))

	strict := NewLockoutPolicy(2)
	assert.True(t, strict.ShouldLock(2))
}
