// Package frontend serves the voting UI next to the API.
package frontend

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"votetally/internal/platform/apperr"
)

// Static serves a built SPA from dir. Paths that do not name a file fall back to
// index.html so client-side routes survive a reload. It returns nil when dir does
// not exist.
func Static(dir string) http.Handler {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		slog.Warn("frontend build directory not found", "dir", dir)
		return nil
	}
	slog.Info("serving frontend static files", "dir", dir)

	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	return apiGuard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if fi, err := os.Stat(name); err == nil && !fi.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, index)
	}))
}

// Proxy forwards everything to a development server such as Vite.
func Proxy(target string) (http.Handler, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	slog.Info("forwarding frontend requests", "target", u.String())

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(u)
			pr.Out.Host = u.Host
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("proxy frontend request", "path", r.URL.Path, "error", err)
			http.Error(w, "Error proxying request to frontend", http.StatusBadGateway)
		},
	}
	return apiGuard(rp), nil
}

// New picks Static in production and Proxy otherwise.
func New(production bool, dir, devURL string) (http.Handler, error) {
	if production {
		return Static(dir), nil
	}
	return Proxy(devURL)
}

// apiGuard keeps unknown API paths from being answered with HTML.
func apiGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			NotFoundAPI(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NotFoundAPI writes the JSON 404 for an unknown API endpoint.
func NotFoundAPI(w http.ResponseWriter, _ *http.Request) {
	e := apperr.NotFound("API endpoint not found", nil)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode())
	_ = json.NewEncoder(w).Encode(e)
}
