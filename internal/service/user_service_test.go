package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"character-creator/internal/auth"
	"character-creator/internal/domain"
	"character-creator/internal/metrics"
)

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	res := env.register(t, "alice", "secret1")
	require.NotNil(t, res.User)
	assert.Equal(t, "alice", res.User.Username)
	assert.Equal(t, "alice@x.com", res.User.Email)
	assert.True(t, res.User.IsActive)
	assert.Empty(t, res.User.PasswordHash)
	assert.Empty(t, res.User.Salt)
	require.NotNil(t, res.Tokens)
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.NotEmpty(t, res.Tokens.RefreshToken)

	stored, err := env.repos.Users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.Equal(t, stored.PasswordHash[:29], stored.Salt)
}

func TestUserService_RegisterDuplicates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "alice", "secret1")

	_, err := env.users.Register(ctx, RegisterInput{Username: "alice", Email: "other@x.com", Password: "secret1"})
	require.ErrorIs(t, err, domain.ErrDuplicate)
	assert.Contains(t, err.Error(), "username")

	_, err = env.users.Register(ctx, RegisterInput{Username: "bob", Email: "ALICE@x.com", Password: "secret1"})
	require.ErrorIs(t, err, domain.ErrDuplicate)
	assert.Contains(t, err.Error(), "email")
}

func TestUserService_UsernamesAreCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "alice", "secret1")

	_, err := env.users.Register(ctx, RegisterInput{Username: "Alice", Email: "other@x.com", Password: "secret1"})
	require.ErrorIs(t, err, domain.ErrDuplicate)
	assert.Contains(t, err.Error(), "username")

	res, err := env.users.Login(ctx, "ALICE", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", res.User.Username)
}

func TestUserService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	for name, input := range map[string]RegisterInput{
		"missing username": {Email: "a@x.com", Password: "secret1"},
		"missing email":    {Username: "alice", Password: "secret1"},
		"short password":   {Username: "alice", Email: "a@x.com", Password: "123"},
	} {
		_, err := env.users.Register(ctx, input)
		require.ErrorIs(t, err, domain.ErrValidation, name)
	}
}

func TestUserService_LoginSuccessResetsCounter(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	reg := env.register(t, "alice", "secret1")

	_, err := env.users.Login(ctx, "alice", "wrong")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	stored, err := env.repos.Users.GetByID(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.FailedLoginAttempts)

	res, err := env.users.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.User.ID)
	assert.NotEmpty(t, res.Tokens.AccessToken)

	stored, err = env.repos.Users.GetByID(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.FailedLoginAttempts)
	assert.NotNil(t, stored.LastLogin)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.LoginAttempts.WithLabelValues(metrics.LoginSuccess)))
}

func TestUserService_UnknownUserDoesNotTouchCounters(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	reg := env.register(t, "alice", "secret1")

	_, err := env.users.Login(ctx, "ghost", "secret1")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	stored, err := env.repos.Users.GetByID(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.FailedLoginAttempts)
}

type countingHasher struct {
	auth.PasswordHasher
	compares int
}

func (h *countingHasher) Compare(password, hash string) bool {
	h.compares++
	return h.PasswordHasher.Compare(password, hash)
}

func TestUserService_UnknownUserStillComparesHash(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "alice", "secret1")

	hasher := &countingHasher{PasswordHasher: auth.NewBcryptHasher(bcrypt.MinCost)}
	users := NewUserService(UserServiceConfig{Users: env.repos.Users, Hasher: hasher, Tokens: env.tokens, Metrics: env.metrics})

	_, err := users.Login(ctx, "ghost", "secret1")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, 1, hasher.compares)

	_, err = users.Login(ctx, "alice", "wrong-password")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, 2, hasher.compares)
}

func TestUserService_LockoutAfterFiveFailures(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	reg := env.register(t, "alice", "secret1")

	for i := 1; i <= 4; i++ {
		_, err := env.users.Login(ctx, "alice", "wrong")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials, "attempt %d", i)
	}

	_, err := env.users.Login(ctx, "alice", "wrong")
	require.ErrorIs(t, err, domain.ErrAccountLocked)

	stored, err := env.repos.Users.GetByID(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Equal(t, 5, stored.FailedLoginAttempts)

	// the correct password no longer helps, and the counter stays put
	_, err = env.users.Login(ctx, "alice", "secret1")
	require.ErrorIs(t, err, domain.ErrAccountDisabled)
	stored, err = env.repos.Users.GetByID(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.FailedLoginAttempts)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.AccountLockouts))

	require.NoError(t, env.users.Activate(ctx, "alice"))
	res, err := env.users.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.True(t, res.User.IsActive)
}

func TestUserService_DeactivatedAccountRefusedBeforePasswordCheck(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	reg := env.register(t, "alice", "secret1")
	require.NoError(t, env.users.Deactivate(ctx, "alice"))

	_, err := env.users.Login(ctx, "alice", "wrong")
	require.ErrorIs(t, err, domain.ErrAccountDisabled)

	stored, err := env.repos.Users.GetByID(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.FailedLoginAttempts)

	require.ErrorIs(t, env.users.Activate(ctx, "ghost"), domain.ErrNotFound)
}

func TestUserService_Refresh(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	reg := env.register(t, "alice", "secret1")

	pair, err := env.users.Refresh(ctx, reg.Tokens.RefreshToken)
	require.NoError(t, err)
	claims, err := env.tokens.Verify(pair.AccessToken, false)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)

	_, err = env.users.Refresh(ctx, reg.Tokens.AccessToken)
	require.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, err = env.users.Refresh(ctx, "  ")
	require.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, env.users.Deactivate(ctx, "alice"))
	_, err = env.users.Refresh(ctx, reg.Tokens.RefreshToken)
	require.ErrorIs(t, err, domain.ErrAccountDisabled)
}

func TestUserService_RefreshUnknownUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	pair, err := env.tokens.Issue(&domain.User{ID: 404, Username: "ghost"})
	require.NoError(t, err)

	_, err = env.users.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	reg := env.register(t, "alice", "secret1")

	err := env.users.ChangePassword(ctx, reg.User.ID, "wrong", "newsecret")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	err = env.users.ChangePassword(ctx, reg.User.ID, "secret1", "123")
	require.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, env.users.ChangePassword(ctx, reg.User.ID, "secret1", "newsecret"))

	stored, err := env.repos.Users.GetByID(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.FailedLoginAttempts)

	_, err = env.users.Login(ctx, "alice", "secret1")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = env.users.Login(ctx, "alice", "newsecret")
	require.NoError(t, err)
}

func TestUserService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.register(t, "alice", "secret1")
	env.register(t, "bob", "secret1")

	updated, err := env.users.UpdateProfile(ctx, alice.User.ID, domain.ProfileUpdate{Email: ptr(" Alice@New.com ")})
	require.NoError(t, err)
	assert.Equal(t, "alice@new.com", updated.Email)

	_, err = env.users.UpdateProfile(ctx, alice.User.ID, domain.ProfileUpdate{Email: ptr("bob@x.com")})
	require.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = env.users.UpdateProfile(ctx, alice.User.ID, domain.ProfileUpdate{})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.users.UpdateProfile(ctx, 999, domain.ProfileUpdate{Email: ptr("z@x.com")})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserService_List(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "alice", "secret1")
	env.register(t, "bob", "secret1")

	users, stats, err := env.users.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.Empty(t, u.PasswordHash)
	}
	assert.EqualValues(t, 2, stats.TotalUsers)
	assert.EqualValues(t, 2, stats.ActiveUsers)
}
