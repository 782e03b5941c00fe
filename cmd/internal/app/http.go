package app

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/munni1406/Blog-Template/cmd/internal/httpx"
)

type healthResponse struct {
	OK bool `json:"ok"`
}

func registerHTTP(mux *http.ServeMux, a *App) {
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, healthResponse{OK: true})
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.ReadinessRequireDB && a.dbPool == nil {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if a.dbPool != nil {
			if err := PingDB(r.Context(), a.dbPool, 2*time.Second); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				a.log.Info("readyz.db.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	mux.Handle("GET /metrics", a.metrics.Handler())

	a.auth.Register(mux)
	a.posts.Register(mux, a.auth.WriteGuard())

	mux.Handle("GET /api/", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteError(w, http.StatusNotFound, httpx.KindNotFound, nil)
	}))
	mux.Handle("GET /", a.auth.Pages(staticHandler(a.cfg.StaticDir)))
}

// staticHandler serves files under dir. Directory listings and dot-files are
// hidden behind 404s; a directory is served only through its index.html.
func staticHandler(dir string) http.Handler {
	return http.FileServerFS(staticFS{fsys: os.DirFS(dir)})
}

type staticFS struct {
	fsys fs.FS
}

func (s staticFS) Open(name string) (fs.File, error) {
	for _, seg := range strings.Split(name, "/") {
		if strings.HasPrefix(seg, ".") && seg != "." {
			return nil, fs.ErrNotExist
		}
	}

	f, err := s.fsys.Open(name)
	if err != nil {
		return nil, err
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if st.IsDir() {
		idx, err := s.fsys.Open(path.Join(name, "index.html"))
		if err != nil {
			_ = f.Close()
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fs.ErrNotExist
			}
			return nil, err
		}
		_ = idx.Close()
	}
	return f, nil
}
