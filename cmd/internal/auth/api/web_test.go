package authapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munni1406/Blog-Template/cmd/internal/auth/session"
)

func postForm(env *testEnv, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	env.mux.ServeHTTP(rr, req)
	return rr
}

func TestFormLogin(t *testing.T) {
	env := newEnv(t, session.StrategySession, nil)
	_, err := env.creds.Register(context.Background(), "alice", "secret123")
	require.NoError(t, err)

	rr := postForm(env, "/auth/login", url.Values{"username": {"alice"}, "password": {"secret123"}, "next": {"/write.html"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/write.html", rr.Header().Get("Location"))
	c := authCookie(t, rr)

	rr = env.do(t, http.MethodGet, "/write.html", "", c)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = postForm(env, "/auth/login", url.Values{"username": {"alice"}, "password": {"secret123"}, "next": {"https://evil.example/"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestFormLogin_Failure(t *testing.T) {
	env := newEnv(t, session.StrategyToken, nil)

	rr := postForm(env, "/auth/login", url.Values{"username": {"alice"}, "password": {"nope"}, "next": {"/write.html"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/login.html", loc.Path)
	assert.Equal(t, "1", loc.Query().Get("error"))
	assert.Equal(t, "/write.html", loc.Query().Get("next"))
	assert.Empty(t, rr.Result().Cookies())
}

func TestFormLogout(t *testing.T) {
	env := newEnv(t, session.StrategySession, nil)
	_, err := env.creds.Register(context.Background(), "alice", "secret123")
	require.NoError(t, err)

	rr := postForm(env, "/auth/login", url.Values{"username": {"alice"}, "password": {"secret123"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	c := authCookie(t, rr)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rr = env.do(t, method, "/auth/logout", "", c)
		require.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/login.html?logged_out=1", rr.Header().Get("Location"))
		assert.Equal(t, -1, authCookie(t, rr).MaxAge)
	}

	rr = env.do(t, http.MethodGet, "/api/auth/me", "", c)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
