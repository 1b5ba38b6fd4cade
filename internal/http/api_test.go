package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"character-creator/internal/auth"
	"character-creator/internal/metrics"
	"character-creator/internal/repository/sqlite"
	"character-creator/internal/service"
	"character-creator/internal/storage/storagetest"
)

const testBucket = "exports-test"

type testServer struct {
	router *gin.Engine
	store  *storagetest.Memory
}

type serverOption func(*HandlerConfig)

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repos, err := sqlite.NewRepositories(context.Background(), db)
	require.NoError(t, err)

	tokens, err := auth.NewTokenManager(auth.TokenConfig{Secret: "http-test-secret", AccessTTL: time.Hour})
	require.NoError(t, err)

	m := metrics.New()
	store := storagetest.NewMemory()
	cfg := HandlerConfig{
		Users: service.NewUserService(service.UserServiceConfig{
			Users:   repos.Users,
			Hasher:  auth.NewBcryptHasher(bcrypt.MinCost),
			Tokens:  tokens,
			Metrics: m,
		}),
		Characters: service.NewCharacterService(repos.Characters, repos.Extras),
		Exports: service.NewExportService(service.ExportServiceConfig{
			Storage:    store,
			Bucket:     testBucket,
			Characters: repos.Characters,
			Extras:     repos.Extras,
			Metrics:    m,
		}),
		Authenticator: service.NewAuthenticator(tokens, repos.Users),
		Health:        db,
		Metrics:       m,
		ExportBucket:  testBucket,
		CORSOrigin:    "*",
		RateLimit:     1000,
		RateWindow:    time.Minute,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	router := gin.New()
	NewHandler(cfg).RegisterRoutes(router)
	return &testServer{router: router, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// register creates an account and returns its access token.
func (s *testServer) register(t *testing.T, username, password string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username":        username,
		"email":           username + "@example.com",
		"password":        password,
		"confirmPassword": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Tokens TokensResponse `json:"tokens"`
	}
	decode(t, rec, &resp)
	return resp.Tokens.AccessToken
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	decode(t, rec, &resp)
	assert.False(t, resp.Success)
	return resp.Error
}

func TestIndexAndHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/characters")

	rec = s.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]any
	decode(t, rec, &health)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "connected", health["database"])
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route not found", errorOf(t, rec))
}

func TestCORSHeadersAndPreflight(t *testing.T) {
	s := newTestServer(t, func(cfg *HandlerConfig) { cfg.CORSOrigin = "http://localhost:3000" })

	rec := s.do(t, http.MethodOptions, "/api/auth/login", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRateLimitRejectsWith429(t *testing.T) {
	s := newTestServer(t, func(cfg *HandlerConfig) {
		cfg.RateLimit = 3
		cfg.RateWindow = time.Hour
	})

	for i := 0; i < 3; i++ {
		rec := s.do(t, http.MethodGet, "/api/health", "", nil)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}
	rec := s.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, errorOf(t, rec), "too many requests")
}

func TestMetricsEndpointIsExposed(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/api/health", "", nil)

	rec := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "character_creator_http_requests_total")
}

func TestRateLimiterRefillsAfterWindow(t *testing.T) {
	l := newIPRateLimiter(2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	ok, _ := l.allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.allow("10.0.0.1")
	assert.True(t, ok)
	ok, retry := l.allow("10.0.0.1")
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))

	ok, _ = l.allow("10.0.0.2")
	assert.True(t, ok, "limits are tracked per client")

	now = now.Add(30 * time.Second)
	ok, _ = l.allow("10.0.0.1")
	assert.True(t, ok)
}
