package authapi

import (
	"net/http"
	"net/url"

	"github.com/munni1406/Blog-Template/cmd/identity"
)

// handleFormLogin serves the HTML login form post. Failures never render a page;
// they bounce back to the login page with ?error=1.
func (h *Handler) handleFormLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, h.loginPageWith("error", ""), http.StatusSeeOther)
		return
	}

	next := safeNext(r.PostFormValue("next"))
	ctx := r.Context()

	u, err := h.creds.Validate(ctx, r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		if !identity.IsInvalidCredentials(err) && !identity.IsInvalidInput(err) {
			h.log.Error("auth.form_login.fail", "err", err)
			h.metrics.inc("login", "error")
		} else {
			h.metrics.inc("login", "rejected")
		}
		http.Redirect(w, r, h.loginPageWith("error", next), http.StatusSeeOther)
		return
	}

	cred, err := h.issuer.Issue(ctx, sessionIdentity(u))
	if err != nil {
		h.log.Error("auth.form_login.issue.fail", "err", err, "user_id", u.ID)
		http.Redirect(w, r, h.loginPageWith("error", next), http.StatusSeeOther)
		return
	}
	h.setCredentialCookie(w, cred)

	h.metrics.inc("login", "ok")
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (h *Handler) handleFormLogout(w http.ResponseWriter, r *http.Request) {
	h.revokeCookie(r)
	h.clearCredentialCookie(w)
	h.metrics.inc("logout", "ok")
	http.Redirect(w, r, h.loginPageWith("logged_out", ""), http.StatusSeeOther)
}

func (h *Handler) loginPageWith(flag, next string) string {
	q := url.Values{}
	q.Set(flag, "1")
	if next != "" && next != "/" {
		q.Set("next", next)
	}
	return h.cfg.LoginPage + "?" + q.Encode()
}
