package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"character-creator/internal/repository"
)

// Open opens (or creates) a sqlite database at the given path and ensures directories exist.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// a single connection serializes writers; the counter updates rely on it
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return db, nil
}

// Repositories bundles the sqlite backed repositories sharing one handle.
type Repositories struct {
	Users      repository.UserRepository
	Characters repository.CharacterRepository
	Extras     repository.CharacterExtrasRepository
}

// NewRepositories builds every repository over db and creates their tables.
func NewRepositories(ctx context.Context, db *sql.DB) (*Repositories, error) {
	repos := &Repositories{
		Users:      NewUserRepository(db),
		Characters: NewCharacterRepository(db),
		Extras:     NewCharacterExtrasRepository(db),
	}
	if err := repos.Users.Init(ctx); err != nil {
		return nil, fmt.Errorf("init user repository: %w", err)
	}
	if err := repos.Characters.Init(ctx); err != nil {
		return nil, fmt.Errorf("init character repository: %w", err)
	}
	if err := repos.Extras.Init(ctx); err != nil {
		return nil, fmt.Errorf("init character extras repository: %w", err)
	}
	return repos, nil
}

// uniqueViolation reports whether err is a UNIQUE constraint failure and, when
// it can tell, which column caused it.
func uniqueViolation(err error) (string, bool) {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		if code != sqlite3.SQLITE_CONSTRAINT_UNIQUE && code&0xff != sqlite3.SQLITE_CONSTRAINT {
			return "", false
		}
	}
	msg := err.Error()
	if !strings.Contains(strings.ToLower(msg), "unique") {
		return "", false
	}
	if idx := strings.LastIndex(msg, "."); idx >= 0 {
		field := msg[idx+1:]
		if end := strings.IndexAny(field, " ()"); end >= 0 {
			field = field[:end]
		}
		if field != "" {
			return field, true
		}
	}
	return "record", true
}

func requireAffected(res sql.Result, op string) error {
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if aff == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func queryOptionalTime(ctx context.Context, db *sql.DB, query string, args ...any) (*time.Time, error) {
	var value sql.NullTime
	if err := db.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if !value.Valid {
		return nil, nil
	}
	t := value.Time
	return &t, nil
}
