package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"character-creator/internal/auth"
	"character-creator/internal/domain"
	"character-creator/internal/repository"
)

// AdminUsername is the only account allowed through the admin route group.
const AdminUsername = "admin"

// Authenticator resolves a bearer token to the active user it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (*domain.User, error)
}

type authenticator struct {
	tokens *auth.TokenManager
	users  repository.UserRepository
}

func NewAuthenticator(tokens *auth.TokenManager, users repository.UserRepository) Authenticator {
	return &authenticator{tokens: tokens, users: users}
}

// Authenticate accepts the raw Authorization header value. The active flag is
// checked after the token verifies and the user row is loaded.
func (a *authenticator) Authenticate(ctx context.Context, authorization string) (*domain.User, error) {
	token := bearerToken(authorization)
	if token == "" {
		return nil, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthenticated)
	}

	claims, err := a.tokens.Verify(token, false)
	if err != nil {
		return nil, err
	}

	user, err := a.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", domain.ErrUnauthenticated)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrAccountDisabled
	}
	return sanitizeUser(user), nil
}

// IsAdmin reports whether user may access administrative routes.
func IsAdmin(user *domain.User) bool {
	return user != nil && user.Username == AdminUsername
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}
