package posts

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munni1406/Blog-Template/cmd/internal/auth/session"
)

func newTestServer(t *testing.T, guard func(http.Handler) http.Handler) (*httptest.Server, *MemoryStore) {
	t.Helper()

	st := NewMemoryStore()
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), st, 0)

	var (
		mu    sync.Mutex
		clock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	)
	h.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}

	mux := http.NewServeMux()
	h.Register(mux, guard)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, st
}

func doJSON(t *testing.T, method, url string, body any) (int, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, raw
}

func TestPosts_CreateDuplicateGet(t *testing.T) {
	t.Parallel()

	ts, st := newTestServer(t, nil)
	in := map[string]string{"slug": "hello", "title": "Hello", "content": "world"}

	status, raw := doJSON(t, http.MethodPost, ts.URL+"/api/posts", in)
	require.Equal(t, http.StatusCreated, status, string(raw))

	var created Post
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.Equal(t, "hello", created.Slug)
	assert.False(t, created.CreatedAt.IsZero())

	status, raw = doJSON(t, http.MethodPost, ts.URL+"/api/posts", in)
	assert.Equal(t, http.StatusConflict, status)
	assert.JSONEq(t, `{"error":"SLUG_EXISTS"}`, string(raw))

	list, err := st.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, list, 1)

	status, raw = doJSON(t, http.MethodGet, ts.URL+"/api/posts/hello", nil)
	require.Equal(t, http.StatusOK, status)
	var got Post
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "world", got.Content)
}

func TestPosts_GetMissing(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, nil)
	status, raw := doJSON(t, http.MethodGet, ts.URL+"/api/posts/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error":"NOT_FOUND"}`, string(raw))
}

func TestPosts_ListOmitsContentAndSorts(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, nil)
	for _, p := range []map[string]string{
		{"slug": "old", "title": "Old", "content": "a", "date": "2024-01-01"},
		{"slug": "new", "title": "New", "content": "b", "date": "2025-06-01"},
		{"slug": "new-later", "title": "New later", "content": "c", "date": "2025-06-01"},
	} {
		status, raw := doJSON(t, http.MethodPost, ts.URL+"/api/posts", p)
		require.Equal(t, http.StatusCreated, status, string(raw))
	}

	status, raw := doJSON(t, http.MethodGet, ts.URL+"/api/posts", nil)
	require.Equal(t, http.StatusOK, status)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 3)
	for _, item := range list {
		_, has := item["content"]
		assert.False(t, has, "summary must not carry content")
	}
	assert.Equal(t, "new-later", list[0]["slug"])
	assert.Equal(t, "new", list[1]["slug"])
	assert.Equal(t, "old", list[2]["slug"])
}

func TestPosts_ListEmptyIsArray(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, nil)
	status, raw := doJSON(t, http.MethodGet, ts.URL+"/api/posts", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestPosts_Validation(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, nil)

	status, raw := doJSON(t, http.MethodPost, ts.URL+"/api/posts", map[string]string{"slug": "  ", "content": "   "})
	require.Equal(t, http.StatusBadRequest, status)

	var body struct {
		Error   string   `json:"error"`
		Details []string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "VALIDATION_ERROR", body.Error)
	assert.Equal(t, []string{"content is required", "slug is required", "title is required"}, body.Details)

	status, raw = doJSON(t, http.MethodPost, ts.URL+"/api/posts", map[string]string{"slug": "bad slug/..", "title": "t", "content": "c"})
	require.Equal(t, http.StatusBadRequest, status)
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Len(t, body.Details, 1)
	assert.Contains(t, body.Details[0], "slug ")

	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/posts", map[string]any{"slug": "x", "title": "t", "content": "c", "unknown": 1})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPosts_Update(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, nil)

	status, raw := doJSON(t, http.MethodPut, ts.URL+"/api/posts/hello", map[string]string{"title": "T", "content": "C"})
	assert.Equal(t, http.StatusNotFound, status, string(raw))

	status, raw = doJSON(t, http.MethodPost, ts.URL+"/api/posts", map[string]string{"slug": "hello", "title": "Hello", "content": "world"})
	require.Equal(t, http.StatusCreated, status)
	var created Post
	require.NoError(t, json.Unmarshal(raw, &created))

	status, raw = doJSON(t, http.MethodPut, ts.URL+"/api/posts/hello", map[string]string{"title": "Hello again", "content": "updated"})
	require.Equal(t, http.StatusOK, status, string(raw))
	var updated Post
	require.NoError(t, json.Unmarshal(raw, &updated))
	assert.Equal(t, "Hello again", updated.Title)
	assert.Equal(t, "updated", updated.Content)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	status, _ = doJSON(t, http.MethodPut, ts.URL+"/api/posts/hello", map[string]string{"slug": "other", "title": "x", "content": "y"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPosts_GuardAndAuthorDefault(t *testing.T) {
	t.Parallel()

	guard := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Test-User") == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			ctx := session.WithIdentity(r.Context(), session.Identity{UserID: "u1", Username: r.Header.Get("X-Test-User")})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
	ts, _ := newTestServer(t, guard)

	status, _ := doJSON(t, http.MethodPost, ts.URL+"/api/posts", map[string]string{"slug": "a", "title": "A", "content": "x"})
	assert.Equal(t, http.StatusUnauthorized, status)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/posts", bytes.NewReader([]byte(`{"slug":"a","title":"A","content":"x"}`)))
	require.NoError(t, err)
	req.Header.Set("X-Test-User", "alice")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var p Post
	require.NoError(t, json.NewDecoder(res.Body).Decode(&p))
	assert.Equal(t, "alice", p.Author)

	// Reads stay public.
	status, _ = doJSON(t, http.MethodGet, ts.URL+"/api/posts/a", nil)
	assert.Equal(t, http.StatusOK, status)
}
