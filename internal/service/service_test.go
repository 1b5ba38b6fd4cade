package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"character-creator/internal/auth"
	"character-creator/internal/domain"
	"character-creator/internal/metrics"
	"character-creator/internal/repository/sqlite"
)

type testEnv struct {
	repos      *sqlite.Repositories
	tokens     *auth.TokenManager
	metrics    *metrics.Metrics
	users      UserService
	characters CharacterService
	authn      Authenticator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repos, err := sqlite.NewRepositories(context.Background(), db)
	require.NoError(t, err)

	tokens, err := auth.NewTokenManager(auth.TokenConfig{Secret: "test-secret", AccessTTL: time.Hour})
	require.NoError(t, err)

	m := metrics.New()
	return &testEnv{
		repos:   repos,
		tokens:  tokens,
		metrics: m,
		users: NewUserService(UserServiceConfig{
			Users:   repos.Users,
			Hasher:  auth.NewBcryptHasher(bcrypt.MinCost),
			Tokens:  tokens,
			Metrics: m,
		}),
		characters: NewCharacterService(repos.Characters, repos.Extras),
		authn:      NewAuthenticator(tokens, repos.Users),
	}
}

func (e *testEnv) register(t *testing.T, username, password string) *AuthResult {
	t.Helper()
	res, err := e.users.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@x.com",
		Password: password,
	})
	require.NoError(t, err)
	return res
}

func ptr[T any](v T) *T {
	return &v
}

func mustCreate(t *testing.T, e *testEnv, userID int64, name string, public bool) *domain.Character {
	t.Helper()
	c, err := e.characters.Create(context.Background(), userID, domain.CharacterPatch{Name: ptr(name), IsPublic: ptr(public)})
	require.NoError(t, err)
	return c
}
