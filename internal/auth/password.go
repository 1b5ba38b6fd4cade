// Package auth holds the credential primitives: password hashing, the failed
// login lockout policy and JWT issuance/verification.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for stored passwords.
const DefaultCost = 12

// bcrypt hashes look like $2a$12$<22 char salt><31 char digest>.
const bcryptSaltPrefixLen = 29

// PasswordHasher hashes and verifies user passwords.
type PasswordHasher interface {
	// Hash returns the encoded hash and the salt embedded in it.
	Hash(password string) (hash string, salt string, err error)
	// Compare reports whether password matches hash.
	Compare(password, hash string) bool
}

// BcryptHasher implements PasswordHasher with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using the given cost; values outside the
// bcrypt range fall back to DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, string, error) {
	if password == "" {
		return "", "", errors.New("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", "", fmt.Errorf("hash password: %w", err)
	}
	encoded := string(hash)
	return encoded, SaltOf(encoded), nil
}

// Compare uses bcrypt's constant time comparison; malformed hashes never match.
func (h *BcryptHasher) Compare(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// SaltOf extracts the "$2a$<cost>$<salt>" prefix of a bcrypt hash.
func SaltOf(hash string) string {
	if len(hash) < bcryptSaltPrefixLen {
		return ""
	}
	return hash[:bcryptSaltPrefixLen]
}
