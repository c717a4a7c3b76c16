// Package site serves the single-page dashboard front end.
package site

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
)

//go:embed static
var embedded embed.FS

// ErrNoIndex is returned when a static directory lacks index.html.
var ErrNoIndex = errors.New("site: index.html not found")

const indexFile = "index.html"

// FS returns the files to serve: dir when it holds a build, otherwise the
// embedded placeholder page.
func FS(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, "static")
	}
	root := os.DirFS(dir)
	if _, err := fs.Stat(root, indexFile); err != nil {
		return nil, errors.Join(ErrNoIndex, err)
	}
	return root, nil
}

// Handler serves files from root and falls back to index.html for unknown
// paths so client-side routes survive a reload.
func Handler(root fs.FS) http.Handler {
	files := http.FileServer(http.FS(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" || name == "." {
			serveIndex(w, r, root)
			return
		}
		if st, err := fs.Stat(root, name); err != nil || st.IsDir() {
			serveIndex(w, r, root)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func serveIndex(w http.ResponseWriter, r *http.Request, root fs.FS) {
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFileFS(w, r, root, indexFile)
}

// Register mounts the front end as the catch-all route of r.
func Register(_ context.Context, r chi.Router, root fs.FS) {
	if r == nil {
		panic("router is nil")
	}
	h := Handler(root)
	r.Get("/*", h.ServeHTTP)
	r.Head("/*", h.ServeHTTP)
}
