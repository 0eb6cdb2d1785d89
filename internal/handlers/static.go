package handlers

import (
	"net/http"
	"path/filepath"
	"strings"
)

// HandleStatic serves uploaded originals and production files.
func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/static/")

	// Prevent directory traversal attacks
	if strings.Contains(path, "..") {
		h.writeError(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	var dir, name string
	switch {
	case strings.HasPrefix(path, "uploads/"):
		dir, name = h.assets.Dir(), strings.TrimPrefix(path, "uploads/")
	case strings.HasPrefix(path, "exports/"):
		dir, name = h.cfg.ExportDir(), strings.TrimPrefix(path, "exports/")
	}
	if dir == "" || name == "" || strings.Contains(name, "/") {
		http.NotFound(w, r)
		return
	}

	if strings.HasSuffix(name, ".png") {
		w.Header().Set("Content-Type", "image/png")
	}
	http.ServeFile(w, r, filepath.Join(dir, name))
}
