package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"readit/internal/middleware"
	"readit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	return nil
}

func TestRegister(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "alice@example.com", "username": "alice", "password": "hunter22",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, `"username":"alice"`)
	assert.NotContains(t, body, "hunter22")
	assert.NotContains(t, body, "password")

	resp = api.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "alice@example.com", "username": "alice", "password": "hunter22",
	}, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	conflict := decode[models.ErrorResponse](t, resp)
	assert.Contains(t, conflict.Fields, "email")
	assert.Contains(t, conflict.Fields, "username")

	resp = api.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "not-an-email", "username": "x", "password": "1",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	invalid := decode[models.ErrorResponse](t, resp)
	assert.Len(t, invalid.Fields, 3)
}

func TestLogin_SetsSessionCookie(t *testing.T) {
	api := newTestAPI(t)
	api.user("alice")

	resp := api.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "hunter22"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.False(t, cookie.Secure)
	assert.WithinDuration(t, time.Now().Add(middleware.SessionTTL), cookie.Expires, time.Minute)

	resp = api.do(http.MethodGet, "/api/auth/me", nil, cookie.Value)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", decode[models.User](t, resp).Username)
}

func TestLogin_BearerHeader(t *testing.T) {
	api := newTestAPI(t)
	token := api.user("alice")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := api.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogin_Rejections(t *testing.T) {
	api := newTestAPI(t)
	api.user("alice")

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"wrong password", map[string]string{"username": "alice", "password": "nope1234"}, http.StatusUnauthorized},
		{"unknown user", map[string]string{"username": "mallory", "password": "hunter22"}, http.StatusUnauthorized},
		{"empty fields", map[string]string{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := api.do(http.MethodPost, "/api/auth/login", tt.body, "")
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Nil(t, sessionCookie(resp))
		})
	}
}

func TestLogin_SecureCookieOutsideDevelopment(t *testing.T) {
	api := newTestAPI(t)
	api.user("alice")
	api.srv.config.Env = "production"

	resp := api.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "hunter22"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.Secure)
}

func TestMe_RequiresSession(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(http.MethodGet, "/api/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogout_ExpiresCookie(t *testing.T) {
	api := newTestAPI(t)
	token := api.user("alice")

	resp := api.do(http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.Expires.Before(time.Now()))
}
