package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/munni1406/Blog-Template/cmd/identity"
	"github.com/munni1406/Blog-Template/cmd/internal/auth/session"
	"github.com/munni1406/Blog-Template/cmd/security/password"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testEnv struct {
	h       *Handler
	mux     *http.ServeMux
	creds   *identity.Service
	users   *identity.MemoryStore
	metrics *Metrics
}

func newEnv(t *testing.T, strategy session.Strategy, mutate func(*Config)) *testEnv {
	t.Helper()

	pw := password.DefaultConfig()
	pw.BcryptCost = bcrypt.MinCost
	users := identity.NewMemoryStore()
	creds := identity.NewService(users, pw)

	scfg := session.DefaultConfig()
	scfg.Strategy = strategy
	scfg.JWTSecret = testSecret
	scfg.SessionSecret = testSecret
	issuer, err := session.NewIssuer(scfg, session.NewMemoryStore())
	require.NoError(t, err)

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	m := NewMetrics(prometheus.NewRegistry())
	h, err := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg, creds, issuer, WithMetrics(m))
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.Handle("GET /", h.Pages(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "page "+r.URL.Path)
	})))

	return &testEnv{h: h, mux: mux, creds: creds, users: users, metrics: m}
}

func (e *testEnv) do(t *testing.T, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	return rr
}

func authCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "blog_auth" {
			return c
		}
	}
	t.Fatalf("no blog_auth cookie in response")
	return nil
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func forEachStrategy(t *testing.T, fn func(t *testing.T, strategy session.Strategy)) {
	for _, s := range []session.Strategy{session.StrategyToken, session.StrategySession} {
		t.Run(string(s), func(t *testing.T) { fn(t, s) })
	}
}

func TestRegisterLoginMeLogout(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, strategy session.Strategy) {
		env := newEnv(t, strategy, nil)

		rr := env.do(t, http.MethodPost, "/api/auth/register", `{"username":"alice","password":"secret123"}`)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		assert.Equal(t, map[string]any{"ok": true, "username": "alice"}, decode(t, rr))

		c := authCookie(t, rr)
		assert.True(t, c.HttpOnly)
		assert.Equal(t, "/", c.Path)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.False(t, c.Secure)
		assert.Positive(t, c.MaxAge)

		rr = env.do(t, http.MethodGet, "/api/auth/me", "", c)
		require.Equal(t, http.StatusOK, rr.Code)
		me := decode(t, rr)
		assert.Equal(t, true, me["ok"])
		assert.Equal(t, "alice", me["username"])
		assert.NotEmpty(t, me["user_id"])

		rr = env.do(t, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"wrong"}`)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, map[string]any{"error": "INVALID_CREDENTIALS"}, decode(t, rr))
		assert.Empty(t, rr.Result().Cookies())

		rr = env.do(t, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"secret123"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, map[string]any{"ok": true, "username": "alice"}, decode(t, rr))
		login := authCookie(t, rr)

		rr = env.do(t, http.MethodPost, "/api/auth/logout", "", login)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, map[string]any{"ok": true}, decode(t, rr))
		cleared := authCookie(t, rr)
		assert.Equal(t, -1, cleared.MaxAge)
		assert.Empty(t, cleared.Value)

		rr = env.do(t, http.MethodGet, "/api/auth/me", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, map[string]any{"error": "UNAUTHORIZED"}, decode(t, rr))

		if strategy == session.StrategySession {
			// Server sessions are revoked on logout; tokens remain valid until expiry.
			rr = env.do(t, http.MethodGet, "/api/auth/me", "", login)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		}

		assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.events.WithLabelValues("login", "ok")))
		assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.events.WithLabelValues("login", "rejected")))
	})
}

func TestRegister_Errors(t *testing.T) {
	env := newEnv(t, session.StrategyToken, nil)

	rr := env.do(t, http.MethodPost, "/api/auth/register", `{"username":"alice","password":"secret123"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/auth/register", `{"username":"ALICE","password":"other-pass"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, map[string]any{"error": "USERNAME_EXISTS"}, decode(t, rr))

	tests := []struct {
		name string
		body string
	}{
		{name: "missing password", body: `{"username":"bob"}`},
		{name: "blank username", body: `{"username":"   ","password":"x"}`},
		{name: "not json", body: `username=bob`},
		{name: "unknown field", body: `{"username":"bob","password":"x","admin":true}`},
		{name: "empty body", body: ``},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/auth/register", tc.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, "VALIDATION_ERROR", decode(t, rr)["error"])
			assert.Empty(t, rr.Result().Cookies())
		})
	}
}

func TestLogin_UnknownUserLooksLikeWrongPassword(t *testing.T) {
	env := newEnv(t, session.StrategyToken, nil)

	rr := env.do(t, http.MethodPost, "/api/auth/login", `{"username":"ghost","password":"secret123"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, map[string]any{"error": "INVALID_CREDENTIALS"}, decode(t, rr))
}

func TestMe_RejectsForgedAndForeignCookies(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, strategy session.Strategy) {
		env := newEnv(t, strategy, nil)

		for _, v := range []string{"garbage", "a.b.c", strings.Repeat("x", 4096)} {
			rr := env.do(t, http.MethodGet, "/api/auth/me", "", &http.Cookie{Name: "blog_auth", Value: v})
			assert.Equal(t, http.StatusUnauthorized, rr.Code, v)
		}

		// A credential minted by an issuer with a different secret is rejected.
		other := session.DefaultConfig()
		other.Strategy = strategy
		other.JWTSecret = []byte("ffffffffffffffffffffffffffffffff")
		other.SessionSecret = other.JWTSecret
		foreign, err := session.NewIssuer(other, session.NewMemoryStore())
		require.NoError(t, err)
		cred, err := foreign.Issue(context.Background(), session.Identity{UserID: "01J00000000000000000000000", Username: "alice"})
		require.NoError(t, err)

		rr := env.do(t, http.MethodGet, "/api/auth/me", "", &http.Cookie{Name: "blog_auth", Value: cred.Value})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestDeleteAccount(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, strategy session.Strategy) {
		env := newEnv(t, strategy, nil)

		rr := env.do(t, http.MethodPost, "/api/auth/register", `{"username":"alice","password":"secret123"}`)
		require.Equal(t, http.StatusCreated, rr.Code)
		first := authCookie(t, rr)
		rr = env.do(t, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"secret123"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		second := authCookie(t, rr)

		rr = env.do(t, http.MethodDelete, "/api/auth/account", "")
		require.Equal(t, http.StatusUnauthorized, rr.Code)

		rr = env.do(t, http.MethodDelete, "/api/auth/account", "", first)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, map[string]any{"ok": true, "deleted": true}, decode(t, rr))
		assert.Equal(t, -1, authCookie(t, rr).MaxAge)
		assert.Equal(t, 0, env.users.Len())

		// Every credential of the deleted user is dead, including stateless tokens.
		for _, c := range []*http.Cookie{first, second} {
			rr = env.do(t, http.MethodGet, "/api/auth/me", "", c)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		}

		// Re-registering the name creates a new account the old tokens cannot reach.
		rr = env.do(t, http.MethodPost, "/api/auth/register", `{"username":"alice","password":"secret456"}`)
		require.Equal(t, http.StatusCreated, rr.Code)
		rr = env.do(t, http.MethodGet, "/api/auth/me", "", second)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func login(t *testing.T, env *testEnv, username, pw string) *http.Cookie {
	t.Helper()
	rr := env.do(t, http.MethodPost, "/api/auth/login", `{"username":"`+username+`","password":"`+pw+`"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return authCookie(t, rr)
}

func TestUpsertUser(t *testing.T) {
	env := newEnv(t, session.StrategyToken, func(c *Config) { c.AdminUsername = "Admin" })
	ctx := context.Background()

	rr := env.do(t, http.MethodPost, "/api/users", `{"username":"bob","password":"first-pass"}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	_, _, err := env.creds.Upsert(ctx, "admin", "admin-pass")
	require.NoError(t, err)
	c := login(t, env, "admin", "admin-pass")

	rr = env.do(t, http.MethodPost, "/api/users", `{"username":"bob","password":"first-pass"}`, c)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, map[string]any{"ok": true, "created": true, "updated": false, "username": "bob"}, decode(t, rr))

	rr = env.do(t, http.MethodPost, "/api/users", `{"username":"bob","password":"second-pass"}`, c)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{"ok": true, "created": false, "updated": true, "username": "bob"}, decode(t, rr))

	_, err = env.creds.Validate(ctx, "bob", "second-pass")
	require.NoError(t, err)

	rr = env.do(t, http.MethodPost, "/api/users", `{"username":"bob"}`, c)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpsertUser_OtherUsersCannotTakeOverAdmin(t *testing.T) {
	env := newEnv(t, session.StrategySession, func(c *Config) { c.AdminUsername = "admin" })
	ctx := context.Background()

	_, _, err := env.creds.Upsert(ctx, "admin", "admin-pass")
	require.NoError(t, err)

	rr := env.do(t, http.MethodPost, "/api/auth/register", `{"username":"mallory","password":"mallory-pass"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	mallory := authCookie(t, rr)

	rr = env.do(t, http.MethodPost, "/api/users", `{"username":"admin","password":"owned-by-mallory"}`, mallory)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, map[string]any{"error": "UNAUTHORIZED"}, decode(t, rr))

	rr = env.do(t, http.MethodPost, "/api/auth/login", `{"username":"admin","password":"owned-by-mallory"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	_, err = env.creds.Validate(ctx, "admin", "admin-pass")
	require.NoError(t, err)

	// The admin name cannot be claimed through registration either.
	rr = env.do(t, http.MethodPost, "/api/auth/register", `{"username":"ADMIN","password":"mallory-pass"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, map[string]any{"error": "USERNAME_EXISTS"}, decode(t, rr))
}

func TestUpsertUser_ClosedWithoutAdmin(t *testing.T) {
	env := newEnv(t, session.StrategyToken, nil)

	_, err := env.creds.Register(context.Background(), "alice", "secret123")
	require.NoError(t, err)
	c := login(t, env, "alice", "secret123")

	rr := env.do(t, http.MethodPost, "/api/users", `{"username":"alice","password":"another-pass"}`, c)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Unprotected writes do not open the admin route or the account route.
	env = newEnv(t, session.StrategyToken, func(c *Config) { c.ProtectWrites = false })
	rr = env.do(t, http.MethodPost, "/api/users", `{"username":"admin","password":"first-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = env.do(t, http.MethodDelete, "/api/auth/account", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

type failingIssuer struct {
	session.Issuer
}

func (failingIssuer) Issue(context.Context, session.Identity) (session.Credential, error) {
	return session.Credential{}, errors.New("redis: connection refused")
}

func TestRegister_IssueFailureStillCreates(t *testing.T) {
	env := newEnv(t, session.StrategySession, nil)
	env.h.issuer = failingIssuer{Issuer: env.h.issuer}

	rr := env.do(t, http.MethodPost, "/api/auth/register", `{"username":"alice","password":"secret123"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, map[string]any{"ok": true, "username": "alice"}, decode(t, rr))
	assert.Empty(t, rr.Result().Cookies())

	_, err := env.creds.Lookup(context.Background(), "alice")
	require.NoError(t, err)
}

type failingCreds struct {
	Credentials
}

func (failingCreds) Lookup(context.Context, string) (identity.User, error) {
	return identity.User{}, errors.New("connection refused")
}

func (failingCreds) Validate(context.Context, string, string) (identity.User, error) {
	return identity.User{}, errors.New("connection refused")
}

func TestStoreFailuresMapToDBError(t *testing.T) {
	env := newEnv(t, session.StrategyToken, nil)
	issued, err := env.h.issuer.Issue(context.Background(), session.Identity{UserID: "01J00000000000000000000000", Username: "alice"})
	require.NoError(t, err)
	env.h.creds = failingCreds{Credentials: env.creds}

	rr := env.do(t, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"secret123"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, map[string]any{"error": "DB_ERROR"}, decode(t, rr))

	rr = env.do(t, http.MethodGet, "/api/auth/me", "", &http.Cookie{Name: "blog_auth", Value: issued.Value})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, map[string]any{"error": "DB_ERROR"}, decode(t, rr))
}

func TestNewHandler_RequiresDependencies(t *testing.T) {
	_, err := NewHandler(nil, DefaultConfig(), nil, nil)
	require.Error(t, err)
}

func TestPagesGate(t *testing.T) {
	env := newEnv(t, session.StrategySession, nil)

	rr := env.do(t, http.MethodGet, "/write.html?draft=1", "")
	require.Equal(t, http.StatusSeeOther, rr.Code)
	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/login.html", loc.Path)
	assert.Equal(t, "/write.html?draft=1", loc.Query().Get("next"))

	for _, p := range []string{"/", "/index.html", "/login.html", "/assets/app.js", "/write.css", "/favicon.ico"} {
		rr = env.do(t, http.MethodGet, p, "")
		assert.Equal(t, http.StatusOK, rr.Code, p)
	}

	_, err = env.creds.Register(context.Background(), "alice", "secret123")
	require.NoError(t, err)
	rr = env.do(t, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"secret123"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodGet, "/account.html", "", authCookie(t, rr))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "page /account.html", rr.Body.String())
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                     "/",
		"/write.html":          "/write.html",
		"/posts?slug=a":        "/posts?slug=a",
		"https://evil.example": "/",
		"//evil.example/x":     "/",
		"/\\evil.example":      "/",
		"relative.html":        "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeNext(in), in)
	}
}
