package http

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRoutesRequireAdminUsername(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice", "secret1")

	rec := s.do(t, http.MethodGet, "/api/admin/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/admin/users", alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminListsUsersWithStats(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, "admin", "secret1")
	s.register(t, "alice", "secret1")

	rec := s.do(t, http.MethodGet, "/api/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Users []UserResponse    `json:"users"`
		Stats UserStatsResponse `json:"stats"`
	}
	decode(t, rec, &resp)
	assert.Len(t, resp.Users, 2)
	assert.EqualValues(t, 2, resp.Stats.TotalUsers)
	assert.EqualValues(t, 2, resp.Stats.ActiveUsers)
	assert.NotContains(t, rec.Body.String(), "$2a$")
}

func TestAdminReactivatesLockedAccount(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, "admin", "secret1")
	s.register(t, "alice", "secret1")

	for i := 0; i < 5; i++ {
		s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "bad-password"})
	}
	rec := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "secret1"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/users/alice/activate", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/users/alice/deactivate", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "secret1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/users/ghost/activate", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
