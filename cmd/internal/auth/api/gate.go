package authapi

import (
	"errors"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/munni1406/Blog-Template/cmd/identity"
	"github.com/munni1406/Blog-Template/cmd/internal/auth/session"
	"github.com/munni1406/Blog-Template/cmd/internal/httpx"
)

var errGateUnauthenticated = errors.New("auth: unauthenticated")

var assetExtensions = map[string]struct{}{
	".css": {}, ".js": {}, ".mjs": {}, ".map": {},
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {}, ".avif": {}, ".svg": {}, ".ico": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".otf": {},
	".txt": {}, ".xml": {}, ".webmanifest": {},
}

// authenticate resolves the request cookie into an identity whose user still
// exists. Any credential problem yields errGateUnauthenticated; other errors are
// credential store failures.
func (h *Handler) authenticate(r *http.Request) (session.Identity, error) {
	v, ok := h.credentialFromCookie(r)
	if !ok {
		return session.Identity{}, errGateUnauthenticated
	}

	ctx := r.Context()
	id, err := h.issuer.Authenticate(ctx, v)
	if err != nil {
		// The bare sentinel is an ordinary rejection; wrapped variants carry a store failure.
		if err != session.ErrUnauthenticated { //nolint:errorlint
			h.log.Warn("auth.gate.authenticate.fail", "err", err)
		}
		return session.Identity{}, errGateUnauthenticated
	}

	u, err := h.creds.Lookup(ctx, id.Username)
	if err != nil {
		if identity.IsNotFound(err) || identity.IsInvalidInput(err) {
			return session.Identity{}, errGateUnauthenticated
		}
		return session.Identity{}, err
	}
	if u.ID != id.UserID {
		// Same name, different account: the original user was deleted and re-registered.
		return session.Identity{}, errGateUnauthenticated
	}

	return session.Identity{UserID: u.ID, Username: u.Username}, nil
}

// RequireAPI rejects requests without a valid credential with 401 UNAUTHORIZED.
func (h *Handler) RequireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := h.authenticate(r)
		if err != nil {
			if errors.Is(err, errGateUnauthenticated) {
				h.metrics.inc("gate", "rejected")
				httpx.WriteError(w, http.StatusUnauthorized, httpx.KindUnauthorized, nil)
				return
			}
			h.log.Error("auth.gate.lookup.fail", "err", err, "path", r.URL.Path)
			httpx.WriteError(w, http.StatusInternalServerError, httpx.KindDB, nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(session.WithIdentity(r.Context(), id)))
	})
}

// RequireAdmin is RequireAPI narrowed to the configured admin username.
// Other identities get 401 UNAUTHORIZED.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return h.RequireAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := session.IdentityFromContext(r.Context())
		if !h.isAdmin(id.Username) {
			h.metrics.inc("gate", "forbidden")
			h.log.Warn("auth.gate.admin.rejected", "user_id", id.UserID, "path", r.URL.Path)
			httpx.WriteError(w, http.StatusUnauthorized, httpx.KindUnauthorized, nil)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func (h *Handler) isAdmin(username string) bool {
	admin := identity.NormalizeUsername(h.cfg.AdminUsername)
	return admin != "" && identity.NormalizeUsername(username) == admin
}

// WriteGuard returns the middleware for write routes. With ProtectWrites off it
// still attaches an identity when one is present but lets anonymous requests through.
func (h *Handler) WriteGuard() func(http.Handler) http.Handler {
	if h.cfg.ProtectWrites {
		return h.RequireAPI
	}
	return h.optional
}

func (h *Handler) optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := h.authenticate(r); err == nil {
			r = r.WithContext(session.WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// Pages gates HTML page requests: protected pages without a valid credential
// are redirected to the login page with the original path in ?next=.
func (h *Handler) Pages(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.isProtectedPage(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		id, err := h.authenticate(r)
		if err != nil {
			if !errors.Is(err, errGateUnauthenticated) {
				h.log.Error("auth.gate.lookup.fail", "err", err, "path", r.URL.Path)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			h.metrics.inc("gate", "redirected")
			http.Redirect(w, r, h.loginRedirect(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(session.WithIdentity(r.Context(), id)))
	})
}

func (h *Handler) isProtectedPage(p string) bool {
	if p == "" || httpx.IsAPIPath(p) || isExempt(p, h.cfg.LoginPage) {
		return false
	}
	clean := path.Clean(p)
	for _, pp := range h.cfg.ProtectedPages {
		if clean == pp {
			return true
		}
	}
	return false
}

func isExempt(p, loginPage string) bool {
	if p == loginPage || strings.HasPrefix(p, "/assets/") {
		return true
	}
	_, ok := assetExtensions[strings.ToLower(path.Ext(p))]
	return ok
}

func (h *Handler) loginRedirect(next string) string {
	q := url.Values{}
	if next = safeNext(next); next != "/" {
		q.Set("next", next)
	}
	if len(q) == 0 {
		return h.cfg.LoginPage
	}
	return h.cfg.LoginPage + "?" + q.Encode()
}

// safeNext keeps redirect targets on this origin.
func safeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return next
}
