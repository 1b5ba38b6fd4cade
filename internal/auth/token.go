package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"character-creator/internal/domain"
)

const (
	DefaultIssuer     = "character-creator-api"
	DefaultAudience   = "character-creator-app"
	DefaultAccessTTL  = 24 * time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Purpose distinguishes access tokens from refresh tokens.
type Purpose string

const (
	PurposeAccess  Purpose = "access"
	PurposeRefresh Purpose = "refresh"
)

// Claims is the JWT payload of both token kinds. Refresh tokens only carry UserID.
type Claims struct {
	UserID   int64   `json:"userId"`
	Username string  `json:"username,omitempty"`
	Email    string  `json:"email,omitempty"`
	Purpose  Purpose `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair is returned to clients after login, registration or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64
	TokenType string
}

// TokenConfig configures a TokenManager.
type TokenConfig struct {
	Secret        string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// TokenManager issues and verifies signed, time-bound tokens.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	audience      string
	now           func() time.Time
}

func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	refreshSecret := strings.TrimSpace(cfg.RefreshSecret)
	if refreshSecret == "" {
		refreshSecret = secret + "-refresh"
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.Audience == "" {
		cfg.Audience = DefaultAudience
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TokenManager{
		accessSecret:  []byte(secret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		audience:      cfg.Audience,
		now:           cfg.Now,
	}, nil
}

// Issue mints a fresh access/refresh pair for user.
func (m *TokenManager) Issue(user *domain.User) (*TokenPair, error) {
	if user == nil || user.ID <= 0 {
		return nil, errors.New("issue tokens: user is required")
	}
	now := m.now()

	access, err := m.sign(Claims{
		UserID:           user.ID,
		Username:         user.Username,
		Email:            user.Email,
		Purpose:          PurposeAccess,
		RegisteredClaims: m.registered(user.ID, now, m.accessTTL),
	}, m.accessSecret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := m.sign(Claims{
		UserID:           user.ID,
		Purpose:          PurposeRefresh,
		RegisteredClaims: m.registered(user.ID, now, m.refreshTTL),
	}, m.refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.accessTTL / time.Second),
		TokenType:    "Bearer",
	}, nil
}

// Verify checks signature, algorithm, issuer, audience, expiry and purpose.
// Failures wrap domain.ErrTokenExpired or domain.ErrTokenInvalid.
func (m *TokenManager) Verify(tokenString string, isRefresh bool) (*Claims, error) {
	secret, purpose := m.accessSecret, PurposeAccess
	if isRefresh {
		secret, purpose = m.refreshSecret, PurposeRefresh
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, domain.ErrTokenInvalid
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("%w: unexpected token type %q", domain.ErrTokenInvalid, claims.Purpose)
	}
	if claims.UserID <= 0 || claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return nil, fmt.Errorf("%w: subject mismatch", domain.ErrTokenInvalid)
	}
	return claims, nil
}

// AccessTTL reports the configured access token lifetime.
func (m *TokenManager) AccessTTL() time.Duration {
	return m.accessTTL
}

func (m *TokenManager) registered(userID int64, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   strconv.FormatInt(userID, 10),
		Audience:  jwt.ClaimStrings{m.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}

func (m *TokenManager) sign(claims Claims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
