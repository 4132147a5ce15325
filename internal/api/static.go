package api

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// StaticHandler serves the browser page and its assets from webFS.
// Files are read on every request so a disk-backed FS picks up edits
// without a restart.
type StaticHandler struct {
	webFS fs.FS
}

func NewStaticHandler(webFS fs.FS) *StaticHandler {
	return &StaticHandler{webFS: webFS}
}

func (h *StaticHandler) Routes(r chi.Router) {
	r.Get("/", h.Index)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(h.webFS))))
}

// Index handles GET /.
func (h *StaticHandler) Index(w http.ResponseWriter, r *http.Request) {
	page, err := fs.ReadFile(h.webFS, "index.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(page)
}
