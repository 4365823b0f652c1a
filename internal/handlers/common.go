package handlers

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/longbox-labs/comicscan/internal/batch"
	"github.com/longbox-labs/comicscan/internal/confirm"
	"github.com/longbox-labs/comicscan/internal/feedback"
	"github.com/longbox-labs/comicscan/internal/models"
	"github.com/longbox-labs/comicscan/internal/pricing"
	"github.com/longbox-labs/comicscan/internal/queue"
)

// MaxBatchSize bounds how many photographs one submission may carry.
const MaxBatchSize = 20

// maxImageBytes limits each uploaded photograph to 10MB.
const maxImageBytes = 10 * 1024 * 1024

type Handler struct {
	store      *batch.Store
	processor  *queue.Processor
	gate       *confirm.Gate
	pricing    *pricing.Client
	feedback   *feedback.Recorder
	uploadsDir string
}

// New wires the handler to the pipeline components. pricing and feedback may
// be nil; both are optional collaborators.
func New(store *batch.Store, processor *queue.Processor, gate *confirm.Gate, pricingClient *pricing.Client, recorder *feedback.Recorder, uploadsDir string) *Handler {
	return &Handler{
		store:      store,
		processor:  processor,
		gate:       gate,
		pricing:    pricingClient,
		feedback:   recorder,
		uploadsDir: uploadsDir,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// Batch helpers
func (h *Handler) getBatchOrError(w http.ResponseWriter, batchID string) (*models.Batch, bool) {
	b, exists := h.store.Snapshot(batchID)
	if !exists {
		h.writeError(w, "Batch not found", http.StatusNotFound)
		return nil, false
	}
	return b, true
}

// File operation helpers
func (h *Handler) ensureUploadsDir() error {
	return os.MkdirAll(h.uploadsDir, 0755)
}

func dataMD5(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
