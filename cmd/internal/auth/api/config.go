package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/munni1406/Blog-Template/cmd/internal/httpx"
)

// Config controls the cookie contract and the request gate.
type Config struct {
	CookieName     string
	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite

	// LoginPage is where unauthenticated page requests are redirected.
	LoginPage string
	// ProtectedPages are exact paths that require a valid credential.
	ProtectedPages []string
	// ProtectWrites requires a credential for post writes. Off by default:
	// anonymous clients may publish.
	ProtectWrites bool
	// AdminUsername is the only identity allowed to call POST /api/users.
	// Empty disables the route for everyone.
	AdminUsername string

	MaxBodyBytes int64
}

// DefaultConfig returns development defaults (non-Secure cookies).
func DefaultConfig() Config {
	return Config{
		CookieName:     "blog_auth",
		CookiePath:     "/",
		CookieSameSite: http.SameSiteLaxMode,
		LoginPage:      "/login.html",
		ProtectedPages: []string{"/account.html", "/write.html"},
		ProtectWrites:  false,
		MaxBodyBytes:   httpx.DefaultMaxBodyBytes,
	}
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
//
//   - BLOG_COOKIE_NAME
//   - BLOG_PRODUCTION (Secure cookies)
//   - BLOG_COOKIE_SAMESITE (lax|strict|none; none forces Secure)
//   - BLOG_LOGIN_PAGE
//   - BLOG_PROTECTED_PAGES (comma separated)
//   - BLOG_PROTECT_WRITES
//   - BLOG_ADMIN_USERNAME
//   - BLOG_MAX_BODY_BYTES
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("BLOG_COOKIE_NAME")); v != "" {
		cfg.CookieName = v
	}
	cfg.CookieSecure = envBool("BLOG_PRODUCTION", false)
	if v := strings.TrimSpace(os.Getenv("BLOG_COOKIE_SAMESITE")); v != "" {
		cfg.CookieSameSite = parseSameSite(v)
	}
	if cfg.CookieSameSite == http.SameSiteNoneMode {
		// Browsers drop SameSite=None cookies that are not Secure.
		cfg.CookieSecure = true
	}

	if v := strings.TrimSpace(os.Getenv("BLOG_LOGIN_PAGE")); strings.HasPrefix(v, "/") {
		cfg.LoginPage = v
	}
	if v, ok := os.LookupEnv("BLOG_PROTECTED_PAGES"); ok {
		cfg.ProtectedPages = splitPaths(v)
	}
	cfg.ProtectWrites = envBool("BLOG_PROTECT_WRITES", false)
	cfg.AdminUsername = strings.TrimSpace(os.Getenv("BLOG_ADMIN_USERNAME"))
	cfg.MaxBodyBytes = envInt64("BLOG_MAX_BODY_BYTES", httpx.DefaultMaxBodyBytes)

	return cfg
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "default":
		return http.SameSiteDefaultMode
	default:
		return http.SameSiteLaxMode
	}
}

func splitPaths(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		out = append(out, p)
	}
	return out
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
