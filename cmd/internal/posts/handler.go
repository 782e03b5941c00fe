package posts

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/munni1406/Blog-Template/cmd/internal/auth/session"
	"github.com/munni1406/Blog-Template/cmd/internal/httpx"
)

// Handler serves the posts API.
type Handler struct {
	log          *slog.Logger
	store        Store
	maxBodyBytes int64
	now          func() time.Time
}

// NewHandler constructs a Handler. maxBodyBytes <= 0 uses httpx.DefaultMaxBodyBytes.
func NewHandler(log *slog.Logger, store Store, maxBodyBytes int64) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:          log,
		store:        store,
		maxBodyBytes: maxBodyBytes,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Register wires the routes. Writes go through guard, which may be nil.
func (h *Handler) Register(mux *http.ServeMux, guard func(http.Handler) http.Handler) {
	if guard == nil {
		guard = func(next http.Handler) http.Handler { return next }
	}
	mux.HandleFunc("GET /api/posts", h.handleList)
	mux.HandleFunc("GET /api/posts/{slug}", h.handleGet)
	mux.Handle("POST /api/posts", guard(http.HandlerFunc(h.handleCreate)))
	mux.Handle("PUT /api/posts/{slug}", guard(http.HandlerFunc(h.handleUpdate)))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context())
	if err != nil {
		h.log.Error("posts.list.fail", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.KindDB, nil)
		return
	}
	if list == nil {
		list = []Summary{}
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Get(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.writeStoreError(w, "posts.get.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	if err := in.Validate(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.KindValidation, ValidationDetails(err))
		return
	}

	p := in.toPost()
	if p.Author == "" {
		if id, ok := session.IdentityFromContext(r.Context()); ok {
			p.Author = id.Username
		}
	}
	now := h.now()
	p.CreatedAt, p.UpdatedAt = now, now

	created, err := h.store.Create(r.Context(), p)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			httpx.WriteError(w, http.StatusConflict, httpx.KindSlugExists, nil)
			return
		}
		h.log.Error("posts.create.fail", "err", err, "slug", p.Slug)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.KindDB, nil)
		return
	}

	h.log.Info("posts.create", "slug", created.Slug, "author", created.Author)
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	if in.Slug == "" {
		in.Slug = slug
	}
	if in.Slug != slug {
		httpx.WriteError(w, http.StatusBadRequest, httpx.KindValidation, []string{"slug cannot be changed"})
		return
	}
	if err := in.Validate(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.KindValidation, ValidationDetails(err))
		return
	}

	p := in.toPost()
	if p.Author == "" {
		if id, ok := session.IdentityFromContext(r.Context()); ok {
			p.Author = id.Username
		}
	}
	p.UpdatedAt = h.now()

	updated, err := h.store.Update(r.Context(), slug, p)
	if err != nil {
		h.writeStoreError(w, "posts.update.fail", err)
		return
	}

	h.log.Info("posts.update", "slug", updated.Slug)
	httpx.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var in Input
	if err := httpx.DecodeJSON(w, r, h.maxBodyBytes, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.KindValidation, []string{httpx.DecodeErrorDetail(err)})
		return Input{}, false
	}
	return in.Normalize(), true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, event string, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, httpx.KindNotFound, nil)
		return
	}
	h.log.Error(event, "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, httpx.KindDB, nil)
}

