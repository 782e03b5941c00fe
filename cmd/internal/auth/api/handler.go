package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/munni1406/Blog-Template/cmd/identity"
	"github.com/munni1406/Blog-Template/cmd/internal/auth/session"
	"github.com/munni1406/Blog-Template/cmd/internal/httpx"
)

// Credentials is the credential store as seen by the HTTP layer.
// *identity.Service satisfies it.
type Credentials interface {
	Register(ctx context.Context, username, password string) (identity.User, error)
	Validate(ctx context.Context, username, password string) (identity.User, error)
	Upsert(ctx context.Context, username, password string) (identity.User, bool, error)
	Lookup(ctx context.Context, username string) (identity.User, error)
	Delete(ctx context.Context, username string) error
}

// Handler wires HTTP auth endpoints to the credential store and the issuer.
type Handler struct {
	log     *slog.Logger
	cfg     Config
	creds   Credentials
	issuer  session.Issuer
	metrics *Metrics
}

// HandlerOption configures optional dependencies.
type HandlerOption func(*Handler)

// WithMetrics records auth events on m.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, creds Credentials, issuer session.Issuer, opts ...HandlerOption) (*Handler, error) {
	if creds == nil {
		return nil, errors.New("auth: nil credential store")
	}
	if issuer == nil {
		return nil, errors.New("auth: nil issuer")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultConfig().CookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	if cfg.LoginPage == "" {
		cfg.LoginPage = DefaultConfig().LoginPage
	}

	h := &Handler{log: log, cfg: cfg, creds: creds, issuer: issuer}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", h.handleLogout)
	mux.Handle("GET /api/auth/me", h.RequireAPI(http.HandlerFunc(h.handleMe)))
	mux.Handle("DELETE /api/auth/account", h.RequireAPI(http.HandlerFunc(h.handleDeleteAccount)))
	mux.Handle("POST /api/users", h.RequireAdmin(http.HandlerFunc(h.handleUpsertUser)))

	mux.HandleFunc("POST /auth/login", h.handleFormLogin)
	mux.HandleFunc("POST /auth/logout", h.handleFormLogout)
	mux.HandleFunc("GET /auth/logout", h.handleFormLogout)
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	// The admin name is reserved for the seeded account, otherwise whoever
	// registers it first would own POST /api/users.
	if h.isAdmin(req.Username) {
		h.metrics.inc("register", "conflict")
		httpx.WriteError(w, http.StatusConflict, httpx.KindUsernameExists, nil)
		return
	}

	ctx := r.Context()
	u, err := h.creds.Register(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case identity.IsInvalidInput(err):
			h.metrics.inc("register", "invalid")
			httpx.WriteError(w, http.StatusBadRequest, httpx.KindValidation, []string{inputDetail(err)})
		case identity.IsConflict(err):
			h.metrics.inc("register", "conflict")
			httpx.WriteError(w, http.StatusConflict, httpx.KindUsernameExists, nil)
		default:
			h.metrics.inc("register", "error")
			h.log.Error("auth.register.fail", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, httpx.KindDB, nil)
		}
		return
	}

	// The account exists at this point. A failed issue still answers 201 so a
	// retry logs in instead of hitting USERNAME_EXISTS.
	cred, err := h.issuer.Issue(ctx, sessionIdentity(u))
	if err != nil {
		h.log.Warn("auth.register.issue.fail", "err", err, "user_id", u.ID)
	} else {
		h.setCredentialCookie(w, cred)
	}

	h.metrics.inc("register", "ok")
	h.log.Info("auth.register", "user_id", u.ID, "username", u.Username)
	httpx.WriteJSON(w, http.StatusCreated, userOKResponse{OK: true, Username: u.Username})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	u, err := h.creds.Validate(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case identity.IsInvalidInput(err):
			h.metrics.inc("login", "invalid")
			httpx.WriteError(w, http.StatusBadRequest, httpx.KindValidation, []string{inputDetail(err)})
		case identity.IsInvalidCredentials(err):
			h.metrics.inc("login", "rejected")
			h.log.Info("auth.login.rejected")
			httpx.WriteError(w, http.StatusUnauthorized, httpx.KindInvalidCredentials, nil)
		default:
			h.metrics.inc("login", "error")
			h.log.Error("auth.login.fail", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, httpx.KindDB, nil)
		}
		return
	}

	if !h.issueCookie(ctx, w, u, "auth.login.issue.fail") {
		return
	}

	h.metrics.inc("login", "ok")
	httpx.WriteJSON(w, http.StatusOK, userOKResponse{OK: true, Username: u.Username})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.revokeCookie(r)
	h.clearCredentialCookie(w)
	h.metrics.inc("logout", "ok")
	httpx.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := session.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.KindUnauthorized, nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, meResponse{OK: true, Username: id.Username, UserID: id.UserID})
}

// handleDeleteAccount removes the caller's user record, then every server-side
// session of that user, then clears the cookie.
func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := session.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.KindUnauthorized, nil)
		return
	}

	if err := h.creds.Delete(ctx, id.Username); err != nil {
		if identity.IsNotFound(err) {
			h.clearCredentialCookie(w)
			httpx.WriteError(w, http.StatusUnauthorized, httpx.KindUnauthorized, nil)
			return
		}
		h.metrics.inc("delete_account", "error")
		h.log.Error("auth.account.delete.fail", "err", err, "user_id", id.UserID)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.KindDB, nil)
		return
	}

	if err := h.issuer.RevokeUser(ctx, id.UserID); err != nil {
		h.log.Warn("auth.account.delete.revoke_sessions.fail", "err", err, "user_id", id.UserID)
	}
	h.revokeCookie(r)
	h.clearCredentialCookie(w)

	h.metrics.inc("delete_account", "ok")
	h.log.Info("auth.account.deleted", "user_id", id.UserID)
	httpx.WriteJSON(w, http.StatusOK, deleteAccountResponse{OK: true, Deleted: true})
}

func (h *Handler) handleUpsertUser(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	u, created, err := h.creds.Upsert(r.Context(), req.Username, req.Password)
	if err != nil {
		if identity.IsInvalidInput(err) {
			httpx.WriteError(w, http.StatusBadRequest, httpx.KindValidation, []string{inputDetail(err)})
			return
		}
		h.log.Error("auth.users.upsert.fail", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.KindDB, nil)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.log.Info("auth.users.upsert", "user_id", u.ID, "created", created)
	httpx.WriteJSON(w, status, upsertResponse{OK: true, Created: created, Updated: !created, Username: u.Username})
}

// ---- helpers ----

func (h *Handler) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.KindValidation, []string{httpx.DecodeErrorDetail(err)})
		return credentialsRequest{}, false
	}
	return req, true
}

func (h *Handler) issueCookie(ctx context.Context, w http.ResponseWriter, u identity.User, event string) bool {
	cred, err := h.issuer.Issue(ctx, sessionIdentity(u))
	if err != nil {
		h.log.Error(event, "err", err, "user_id", u.ID)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.KindDB, nil)
		return false
	}
	h.setCredentialCookie(w, cred)
	return true
}

func (h *Handler) revokeCookie(r *http.Request) {
	v, ok := h.credentialFromCookie(r)
	if !ok {
		return
	}
	if err := h.issuer.Revoke(r.Context(), v); err != nil {
		h.log.Warn("auth.logout.revoke.fail", "err", err)
	}
}

func inputDetail(err error) string {
	var opErr identity.OpError
	if errors.As(err, &opErr) && opErr.Msg != "" {
		return opErr.Msg
	}
	return "username and password are required"
}

func sessionIdentity(u identity.User) session.Identity {
	return session.Identity{UserID: u.ID, Username: u.Username}
}
