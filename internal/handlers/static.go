package handlers

import (
	"net/http"
	"path/filepath"
	"strings"
)

// HandleStatic serves stored photograph previews under /static/uploads/.
func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/static/")

	// Prevent directory traversal attacks
	if strings.Contains(path, "..") {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	if !strings.HasPrefix(path, "uploads/") {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filepath.Join(h.uploadsDir, strings.TrimPrefix(path, "uploads/")))
}
