package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"character-creator/internal/domain"
)

func TestAuthenticator(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	reg := env.register(t, "alice", "secret1")

	user, err := env.authn.Authenticate(ctx, "Bearer "+reg.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, user.ID)
	assert.Empty(t, user.PasswordHash)

	user, err = env.authn.Authenticate(ctx, "bearer "+reg.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	for name, header := range map[string]string{
		"empty":        "",
		"blank bearer": "Bearer   ",
		"basic":        "Basic abc",
	} {
		_, err := env.authn.Authenticate(ctx, header)
		require.ErrorIs(t, err, domain.ErrUnauthenticated, name)
	}

	_, err = env.authn.Authenticate(ctx, "Bearer "+reg.Tokens.RefreshToken)
	require.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, err = env.authn.Authenticate(ctx, "Bearer garbage")
	require.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestAuthenticator_InactiveAndMissingUsers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	reg := env.register(t, "alice", "secret1")

	require.NoError(t, env.users.Deactivate(ctx, "alice"))
	_, err := env.authn.Authenticate(ctx, "Bearer "+reg.Tokens.AccessToken)
	require.ErrorIs(t, err, domain.ErrAccountDisabled)

	ghost, err := env.tokens.Issue(&domain.User{ID: 999, Username: "ghost"})
	require.NoError(t, err)
	_, err = env.authn.Authenticate(ctx, "Bearer "+ghost.AccessToken)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, IsAdmin(&domain.User{Username: "admin"}))
	assert.False(t, IsAdmin(&domain.User{Username: "alice"}))
	assert.False(t, IsAdmin(nil))
}
