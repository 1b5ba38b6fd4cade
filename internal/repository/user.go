package repository

import (
	"context"
	"errors"

	"character-creator/internal/domain"
)

// ErrNotFound is returned by lookups when no row matches. Callers treat it as
// "absent" rather than as a storage failure.
var ErrNotFound = errors.New("record not found")

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash, salt string) error
	UpdateProfile(ctx context.Context, id int64, update domain.ProfileUpdate) error
	IncrementFailedLoginAttempts(ctx context.Context, id int64) (int, error)
	ResetFailedLoginAttempts(ctx context.Context, id int64) error
	UpdateLastLogin(ctx context.Context, id int64) error
	SetActive(ctx context.Context, id int64, active bool) error
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
	Stats(ctx context.Context) (domain.UserStats, error)
	Ping(ctx context.Context) error
}
