package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/longbox-labs/comicscan/internal/models"
)

// HandleBatches serves POST /api/batches: the only entry point that creates
// scan items.
func (h *Handler) HandleBatches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.writeJSON(w, h.store.Snapshots())
	case "POST":
		h.handleSubmit(w, r)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxBatchSize * maxImageBytes); err != nil {
		h.writeError(w, "Failed to parse upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		h.writeError(w, "At least one image is required", http.StatusBadRequest)
		return
	}
	if len(files) > MaxBatchSize {
		h.writeError(w, fmt.Sprintf("Too many images (max %d)", MaxBatchSize), http.StatusBadRequest)
		return
	}

	if err := h.ensureUploadsDir(); err != nil {
		h.writeError(w, "Failed to create uploads directory: "+err.Error(), http.StatusInternalServerError)
		return
	}

	includeReprints := r.FormValue("include_reprints") == "true" || r.FormValue("include_reprints") == "1"

	b := &models.Batch{
		ID:              uuid.NewString(),
		IncludeReprints: includeReprints,
		CreatedAt:       time.Now(),
	}

	// Submission order defines classification order; items are appended in
	// the order the form carries them.
	for _, header := range files {
		imagePath, err := h.saveUploadedImage(header)
		if err != nil {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		b.Items = append(b.Items, &models.ScanItem{
			ID:        uuid.NewString(),
			ImagePath: imagePath,
			Status:    models.StatusQueued,
			CreatedAt: time.Now(),
		})
	}

	h.store.Add(b)
	h.processor.Kick()

	slog.Info("Batch submitted", "batch_id", b.ID, "items", len(b.Items), "include_reprints", includeReprints)

	response := map[string]any{
		"batch_id": b.ID,
		"message":  fmt.Sprintf("Successfully queued %d image(s)", len(b.Items)),
		"items":    len(b.Items),
	}
	h.writeJSON(w, response)
}

func (h *Handler) saveUploadedImage(header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file %s: %w", header.Filename, err)
	}
	defer file.Close()

	fileData, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read file contents: %w", err)
	}
	if len(fileData) >= maxImageBytes {
		return "", fmt.Errorf("file %s too large (max 10MB)", header.Filename)
	}
	if len(fileData) == 0 {
		return "", fmt.Errorf("file %s is empty", header.Filename)
	}

	imageFilename := dataMD5(fileData) + filepath.Ext(header.Filename)
	imagePath := filepath.Join(h.uploadsDir, imageFilename)
	if err := os.WriteFile(imagePath, fileData, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	slog.Info("Image saved", "filename", imageFilename)
	return imagePath, nil
}

// HandleBatchDetail serves GET and DELETE on /api/batches/{id}, and routes
// item subpaths.
func (h *Handler) HandleBatchDetail(w http.ResponseWriter, r *http.Request) {
	batchID, rest := splitBatchPath(r.URL.Path)
	if batchID == "" {
		h.writeError(w, "Batch id required", http.StatusBadRequest)
		return
	}
	if rest != "" {
		h.handleItemPath(w, r, batchID, rest)
		return
	}

	switch r.Method {
	case "GET":
		b, ok := h.getBatchOrError(w, batchID)
		if !ok {
			return
		}
		h.writeJSON(w, map[string]any{
			"batch":    b,
			"complete": b.AllTerminal(),
		})
	case "DELETE":
		if !h.store.Close(batchID) {
			h.writeError(w, "Batch not found", http.StatusNotFound)
			return
		}
		slog.Info("Batch reset", "batch_id", batchID)
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
