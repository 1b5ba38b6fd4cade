package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"character-creator/internal/auth"
	"character-creator/internal/domain"
	"character-creator/internal/metrics"
	"character-creator/internal/repository"
)

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AuthResult is returned by operations that sign a user in.
type AuthResult struct {
	User   *domain.User
	Tokens *auth.TokenPair
}

// UserService describes user lifecycle and credential operations.
type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, username, password string) (*AuthResult, error)
	VerifyCredentials(ctx context.Context, username, password string) (*domain.User, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateProfile(ctx context.Context, id int64, update domain.ProfileUpdate) (*domain.User, error)
	ChangePassword(ctx context.Context, id int64, currentPassword, newPassword string) error
	Activate(ctx context.Context, username string) error
	Deactivate(ctx context.Context, username string) error
	List(ctx context.Context, limit, offset int) ([]domain.User, domain.UserStats, error)
}

// UserServiceConfig wires the collaborators of the user service.
type UserServiceConfig struct {
	Users   repository.UserRepository
	Hasher  auth.PasswordHasher
	Tokens  *auth.TokenManager
	Lockout auth.LockoutPolicy
	Metrics *metrics.Metrics
	Logger  *logrus.Logger
}

type userService struct {
	users   repository.UserRepository
	hasher  auth.PasswordHasher
	tokens  *auth.TokenManager
	lockout auth.LockoutPolicy
	metrics *metrics.Metrics
	log     *logrus.Logger

	// dummyHash is compared against when the username is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyHash func() string
}

func NewUserService(cfg UserServiceConfig) UserService {
	if cfg.Hasher == nil {
		cfg.Hasher = auth.NewBcryptHasher(auth.DefaultCost)
	}
	if cfg.Lockout.Threshold <= 0 {
		cfg.Lockout = auth.NewLockoutPolicy(auth.DefaultLockoutThreshold)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
		cfg.Logger.SetOutput(io.Discard)
	}
	svc := &userService{
		users:   cfg.Users,
		hasher:  cfg.Hasher,
		tokens:  cfg.Tokens,
		lockout: cfg.Lockout,
		metrics: cfg.Metrics,
		log:     cfg.Logger,
	}
	svc.dummyHash = sync.OnceValue(func() string {
		hash, _, err := svc.hasher.Hash("unknown-user-placeholder")
		if err != nil {
			return ""
		}
		return hash
	})
	return svc
}

func (s *userService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if len(input.Password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", domain.ErrValidation)
	}

	if err := s.ensureAvailable(ctx, username, email); err != nil {
		return nil, err
	}

	hash, salt, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Salt:         salt,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// the unique constraints still catch a concurrent registration
	if _, err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	tokens, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("user registered")
	return &AuthResult{User: sanitizeUser(user), Tokens: tokens}, nil
}

func (s *userService) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return fmt.Errorf("%w: username already registered", domain.ErrDuplicate)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return fmt.Errorf("%w: email already registered", domain.ErrDuplicate)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

func (s *userService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.VerifyCredentials(ctx, username, password)
	if err != nil {
		return nil, err
	}
	tokens, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// VerifyCredentials checks a username/password pair and applies the lockout policy.
// Inactive accounts are refused before the password is compared.
func (s *userService) VerifyCredentials(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		s.metrics.ObserveLogin(metrics.LoginInvalid)
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.Compare(password, s.dummyHash())
			s.metrics.ObserveLogin(metrics.LoginInvalid)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.checkPassword(ctx, user, password); err != nil {
		return nil, err
	}

	if err := s.users.ResetFailedLoginAttempts(ctx, user.ID); err != nil {
		return nil, err
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user.FailedLoginAttempts = 0
	user.LastLogin = &now

	s.metrics.ObserveLogin(metrics.LoginSuccess)
	return sanitizeUser(user), nil
}

// checkPassword enforces the active flag and records a failed attempt on mismatch.
func (s *userService) checkPassword(ctx context.Context, user *domain.User, password string) error {
	entry := s.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username})

	if !user.IsActive {
		s.metrics.ObserveLogin(metrics.LoginDisabled)
		entry.Warn("login refused: account disabled")
		return domain.ErrAccountDisabled
	}

	if s.hasher.Compare(password, user.PasswordHash) {
		return nil
	}

	attempts, err := s.users.IncrementFailedLoginAttempts(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("record failed login: %w", err)
	}

	if s.lockout.ShouldLock(attempts) {
		if err := s.users.SetActive(ctx, user.ID, false); err != nil {
			return fmt.Errorf("lock account: %w", err)
		}
		s.metrics.ObserveLogin(metrics.LoginLocked)
		entry.WithField("attempts", attempts).Warn("account locked after failed logins")
		return domain.ErrAccountLocked
	}

	s.metrics.ObserveLogin(metrics.LoginInvalid)
	entry.WithField("remaining", s.lockout.Remaining(attempts)).Info("failed login")
	return domain.ErrInvalidCredentials
}

func (s *userService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, fmt.Errorf("%w: refresh token is required", domain.ErrValidation)
	}

	claims, err := s.tokens.Verify(refreshToken, true)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user", domain.ErrNotFound)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrAccountDisabled
	}

	return s.tokens.Issue(user)
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user", domain.ErrNotFound)
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) UpdateProfile(ctx context.Context, id int64, update domain.ProfileUpdate) (*domain.User, error) {
	if update.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*update.Email))
		if email == "" {
			return nil, fmt.Errorf("%w: email must not be empty", domain.ErrValidation)
		}
		update.Email = &email
	}
	if err := s.users.UpdateProfile(ctx, id, update); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user", domain.ErrNotFound)
		}
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// ChangePassword verifies the current password through the same lockout path as login.
func (s *userService) ChangePassword(ctx context.Context, id int64, currentPassword, newPassword string) error {
	if len(newPassword) < 6 || len(newPassword) > 100 {
		return fmt.Errorf("%w: new password must be 6 to 100 characters", domain.ErrValidation)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: user", domain.ErrNotFound)
		}
		return err
	}

	if err := s.checkPassword(ctx, user, currentPassword); err != nil {
		return err
	}

	hash, salt, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, id, hash, salt); err != nil {
		return err
	}

	s.log.WithField("user_id", id).Info("password changed")
	return nil
}

// Activate restores a disabled or locked account and clears its failure counter.
func (s *userService) Activate(ctx context.Context, username string) error {
	return s.setActive(ctx, username, true)
}

func (s *userService) Deactivate(ctx context.Context, username string) error {
	return s.setActive(ctx, username, false)
}

func (s *userService) setActive(ctx context.Context, username string, active bool) error {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: user %q", domain.ErrNotFound, username)
		}
		return err
	}
	if err := s.users.SetActive(ctx, user.ID, active); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username, "active": active}).Info("account status changed")
	return nil
}

func (s *userService) List(ctx context.Context, limit, offset int) ([]domain.User, domain.UserStats, error) {
	limit, offset = normalizePage(limit, offset)
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, domain.UserStats{}, err
	}
	for i := range users {
		users[i] = *sanitizeUser(&users[i])
	}
	stats, err := s.users.Stats(ctx)
	if err != nil {
		return nil, domain.UserStats{}, err
	}
	return users, stats, nil
}

// sanitizeUser strips credential material before a user leaves the service layer.
func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	clean := *user
	clean.PasswordHash = ""
	clean.Salt = ""
	return &clean
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
