package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5000", cfg.Server.Addr)
	assert.Equal(t, "*", cfg.Server.CORSOrigin)
	assert.Equal(t, 100, cfg.Server.RateLimit)
	assert.Equal(t, 15*time.Minute, cfg.Server.RateWindow)
	assert.Equal(t, "data/character-creator.db", cfg.Database.Path)
	assert.Equal(t, 24*time.Hour, cfg.Auth.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "character-exports", cfg.Storage.KeyPrefix)
	assert.Empty(t, cfg.Storage.Bucket)

	require.Error(t, cfg.Validate(), "jwt secret is required")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CHARACTER_AUTH_JWTSECRET", "prefixed")
	t.Setenv("CHARACTER_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("CHARACTER_AUTH_REFRESHTTL", "14d")
	t.Setenv("CHARACTER_STORAGE_BUCKET", "exports")
	t.Setenv("PORT", "7000")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Auth.JWTSecret)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 14*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, "exports", cfg.Storage.Bucket)
	require.NoError(t, cfg.Validate())
}

func TestLoad_PlainAliases(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "plain")
	t.Setenv("JWT_EXPIRES_IN", "2h")
	t.Setenv("CORS_ORIGIN", "https://app.example.com")
	t.Setenv("PORT", "7000")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, "plain", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.AccessTTL)
	assert.Equal(t, "https://app.example.com", cfg.Server.CORSOrigin)
	assert.Equal(t, "0.0.0.0:7000", cfg.Server.Addr)
}

func TestLoad_DotEnvAndConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(`
# comment
export CHARACTER_AUTH_JWTSECRET="from-dotenv"
CHARACTER_LOG_LEVEL='debug'
`), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("CHARACTER_AUTH_JWTSECRET")
		_ = os.Unsetenv("CHARACTER_LOG_LEVEL")
	})

	cfgFile := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("database:\n  path: /tmp/custom.db\nserver:\n  ratelimit: 10\n"), 0o600))

	cfg, err := Load(Options{ConfigFile: cfgFile})
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Auth.JWTSecret)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/custom.db", cfg.Database.Path)
	assert.Equal(t, 10, cfg.Server.RateLimit)

	_, err = Load(Options{ConfigFile: filepath.Join(dir, "missing.yaml")})
	require.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CHARACTER_AUTH_ACCESSTTL", "soon")

	_, err := Load(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.accessttl")
}

func TestParseDuration(t *testing.T) {
	tests := map[string]time.Duration{
		"7d":   7 * 24 * time.Hour,
		"0d":   0,
		"24h":  24 * time.Hour,
		"15m":  15 * time.Minute,
		" 1d ": 24 * time.Hour,
	}
	for in, want := range tests {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "xd", "-1d", "seven"} {
		_, err := ParseDuration(in)
		require.Error(t, err, in)
	}
}
