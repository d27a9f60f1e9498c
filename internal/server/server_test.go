package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emilythestrangee/storymap/backend/internal/apperr"
	"github.com/emilythestrangee/storymap/backend/internal/auth"
	"github.com/emilythestrangee/storymap/backend/internal/config"
	"github.com/emilythestrangee/storymap/backend/internal/handlers"
	"github.com/emilythestrangee/storymap/backend/internal/models"
)

type staticHealth map[string]string

func (h staticHealth) Health() map[string]string { return h }

// accounts maps user ids to their stored role; missing ids are unknown accounts.
type accounts map[uint]models.Role

func (a accounts) ActiveRole(_ context.Context, id uint) (models.Role, error) {
	if role, ok := a[id]; ok {
		return role, nil
	}
	return "", apperr.Unauthorized("Account no longer exists")
}

func testServer(health map[string]string) (*Server, *auth.Tokens) {
	gin.SetMode(gin.TestMode)
	tokens := auth.NewTokens("secret", "storymap", time.Hour)
	return &Server{
		cfg:     &config.Config{CORSOrigins: []string{"*"}, VoteRateLimit: 10, VoteRateWindow: time.Minute},
		log:     zap.NewNop(),
		handler: handlers.NewHandler(handlers.Services{}),
		tokens:  tokens,
		users:   accounts{2: models.RoleUser},
		health:  staticHealth(health),
	}, tokens
}

func request(t *testing.T, r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := testServer(map[string]string{"status": "up"})
	r := s.RegisterRoutes()
	assert.Equal(t, http.StatusOK, request(t, r, http.MethodGet, "/health", "").Code)

	s, _ = testServer(map[string]string{"status": "down"})
	r = s.RegisterRoutes()
	assert.Equal(t, http.StatusServiceUnavailable, request(t, r, http.MethodGet, "/health", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := testServer(map[string]string{"status": "up"})
	r := s.RegisterRoutes()
	request(t, r, http.MethodGet, "/health", "")
	w := request(t, r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "storymap_http_requests_total")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s, _ := testServer(map[string]string{"status": "up"})
	r := s.RegisterRoutes()

	for _, rt := range []struct{ method, path string }{
		{http.MethodPost, "/api/stories"},
		{http.MethodPost, "/api/stories/1/like"},
		{http.MethodPost, "/api/comments/1/like"},
		{http.MethodPut, "/api/comments/1"},
		{http.MethodDelete, "/api/stories/1"},
		{http.MethodGet, "/api/auth/me"},
		{http.MethodPatch, "/api/users/1"},
	} {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, request(t, r, rt.method, rt.path, "").Code)
		})
	}
}

func TestAdminRoutesRejectUsers(t *testing.T) {
	s, tokens := testServer(map[string]string{"status": "up"})
	r := s.RegisterRoutes()

	tok, err := tokens.Issue(&models.User{ID: 2, Email: "u@example.com", Role: models.RoleUser})
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, request(t, r, http.MethodPost, "/api/categories", tok).Code)
	assert.Equal(t, http.StatusForbidden, request(t, r, http.MethodGet, "/api/users", tok).Code)
	assert.Equal(t, http.StatusForbidden, request(t, r, http.MethodPatch, "/api/users/3", tok).Code)
}

func TestStaleTokenForRemovedAccount(t *testing.T) {
	s, tokens := testServer(map[string]string{"status": "up"})
	r := s.RegisterRoutes()

	tok, err := tokens.Issue(&models.User{ID: 7, Email: "gone@example.com", Role: models.RoleAdmin})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, request(t, r, http.MethodGet, "/api/users", tok).Code)
	assert.Equal(t, http.StatusUnauthorized, request(t, r, http.MethodPost, "/api/stories/1/like", tok).Code)
}
