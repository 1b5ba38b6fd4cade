package domain

import "time"

// User represents an account that can authenticate against the API.
type User struct {
	ID                  int64
	Username            string
	Email               string
	PasswordHash        string
	Salt                string
	IsActive            bool
	FailedLoginAttempts int
	LastLogin           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ProfileUpdate carries the user fields a profile update may change.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Email    *string
	IsActive *bool
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Email == nil && u.IsActive == nil
}

// UserStats aggregates account level counters for administrators.
type UserStats struct {
	TotalUsers      int64
	ActiveUsers     int64
	InactiveUsers   int64
	AvgFailedLogins float64
	LatestLogin     *time.Time
}
