package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"character-creator/internal/domain"
	"character-creator/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE COLLATE NOCASE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	salt TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	failed_login_attempts INTEGER NOT NULL DEFAULT 0,
	last_login DATETIME NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const userColumns = `id, username, email, password_hash, salt, is_active, failed_login_attempts, last_login, created_at, updated_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO users (username, email, password_hash, salt, is_active, failed_login_attempts, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Salt,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if field, ok := uniqueViolation(err); ok {
			return 0, fmt.Errorf("%w: %s already registered", domain.ErrDuplicate, field)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user last insert id: %w", err)
	}
	user.ID = id
	return id, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash, salt string) error {
	return r.exec(ctx, "update password", `
UPDATE users
SET password_hash=?, salt=?, failed_login_attempts=0, updated_at=?
WHERE id=?`,
		passwordHash,
		salt,
		time.Now().UTC(),
		id,
	)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, update domain.ProfileUpdate) error {
	var (
		sets []string
		args []any
	)
	if update.Email != nil {
		sets = append(sets, "email=?")
		args = append(args, *update.Email)
	}
	if update.IsActive != nil {
		sets = append(sets, "is_active=?")
		args = append(args, *update.IsActive)
	}
	if len(sets) == 0 {
		return fmt.Errorf("%w: no updatable fields", domain.ErrValidation)
	}
	sets = append(sets, "updated_at=?")
	args = append(args, time.Now().UTC(), id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id=?`, strings.Join(sets, ", "))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if field, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%w: %s already registered", domain.ErrDuplicate, field)
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return requireAffected(res, "update profile")
}

// IncrementFailedLoginAttempts bumps the counter in a single statement and returns the new value.
func (r *UserRepository) IncrementFailedLoginAttempts(ctx context.Context, id int64) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx, `
UPDATE users
SET failed_login_attempts = failed_login_attempts + 1, updated_at=?
WHERE id=?
RETURNING failed_login_attempts`,
		time.Now().UTC(),
		id,
	).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("increment failed login attempts: %w", err)
	}
	return attempts, nil
}

func (r *UserRepository) ResetFailedLoginAttempts(ctx context.Context, id int64) error {
	return r.exec(ctx, "reset failed login attempts", `
UPDATE users
SET failed_login_attempts=0, updated_at=?
WHERE id=?`,
		time.Now().UTC(),
		id,
	)
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	return r.exec(ctx, "update last login", `
UPDATE users
SET last_login=?, updated_at=?
WHERE id=?`,
		now,
		now,
		id,
	)
}

// SetActive toggles the account flag. Activation also clears the failed login counter.
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE users SET is_active=?, updated_at=? WHERE id=?`
	if active {
		query = `UPDATE users SET is_active=?, failed_login_attempts=0, updated_at=? WHERE id=?`
	}
	return r.exec(ctx, "set active", query, active, time.Now().UTC(), id)
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+userColumns+`
FROM users
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *UserRepository) Stats(ctx context.Context) (domain.UserStats, error) {
	var (
		stats    domain.UserStats
		active   sql.NullInt64
		inactive sql.NullInt64
		avg      sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, `
SELECT
	COUNT(*),
	SUM(is_active),
	SUM(NOT is_active),
	AVG(failed_login_attempts)
FROM users`).Scan(&stats.TotalUsers, &active, &inactive, &avg)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("query user stats: %w", err)
	}
	stats.ActiveUsers = active.Int64
	stats.InactiveUsers = inactive.Int64
	stats.AvgFailedLogins = avg.Float64

	latest, err := queryOptionalTime(ctx, r.db, `
SELECT last_login FROM users
WHERE last_login IS NOT NULL
ORDER BY last_login DESC
LIMIT 1`)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("query latest login: %w", err)
	}
	stats.LatestLogin = latest
	return stats, nil
}

func (r *UserRepository) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireAffected(res, op)
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		user      domain.User
		lastLogin sql.NullTime
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Salt,
		&user.IsActive,
		&user.FailedLoginAttempts,
		&lastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}
	return &user, nil
}
