package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/longbox-labs/comicscan/internal/batch"
	"github.com/longbox-labs/comicscan/internal/confirm"
	"github.com/longbox-labs/comicscan/internal/feedback"
	"github.com/longbox-labs/comicscan/internal/models"
	"github.com/longbox-labs/comicscan/internal/review"
)

// splitBatchPath extracts the batch id and any trailing subpath from
// /api/batches/{id}[/...].
func splitBatchPath(path string) (batchID, rest string) {
	trimmed := strings.TrimPrefix(path, "/api/batches/")
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return "", ""
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

// handleItemPath routes items/{itemID}[/{action}] under a batch.
func (h *Handler) handleItemPath(w http.ResponseWriter, r *http.Request, batchID, rest string) {
	parts := strings.Split(rest, "/")
	if parts[0] != "items" || len(parts) < 2 {
		h.writeError(w, "Not found", http.StatusNotFound)
		return
	}
	itemID := parts[1]

	action := ""
	if len(parts) > 2 {
		action = parts[2]
	}

	switch action {
	case "":
		h.handleItemDetail(w, r, batchID, itemID)
	case "select":
		h.handleSelect(w, r, batchID, itemID)
	case "confirm":
		h.handleConfirm(w, r, batchID, itemID)
	case "skip":
		h.handleSkip(w, r, batchID, itemID)
	case "feedback":
		h.handleFeedback(w, r, batchID, itemID)
	default:
		h.writeError(w, "Not found", http.StatusNotFound)
	}
}

func (h *Handler) handleItemDetail(w http.ResponseWriter, r *http.Request, batchID, itemID string) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	item, ok := h.store.SnapshotItem(batchID, itemID)
	if !ok {
		h.writeError(w, "Scan item not found", http.StatusNotFound)
		return
	}

	presentation := review.Group(item)
	includeReprints := r.URL.Query().Get("include_reprints") == "1" || r.URL.Query().Get("include_reprints") == "true"
	if includeReprints && len(item.Suppressed) > 0 {
		// Regroup with suppressed candidates visible. The fast-confirm
		// shortcut stays pinned to the filtered list and is withheld here.
		merged := *item
		merged.Candidates = append(append([]models.Candidate(nil), item.Candidates...), item.Suppressed...)
		presentation = review.Group(&merged)
		presentation.FastConfirmID = ""
	}

	h.writeJSON(w, map[string]any{
		"item":          item,
		"presentation":  presentation,
		"no_match_copy": noMatchCopy(item),
	})
}

// noMatchCopy distinguishes a legitimate empty result from a service
// failure; both land in the noMatch state but must read differently.
func noMatchCopy(item *models.ScanItem) string {
	if item.Status != models.StatusNoMatch {
		return ""
	}
	if item.Error != "" {
		return "We couldn't reach the identification service for this photo."
	}
	if len(item.Suppressed) > 0 {
		return "Only reprints and facsimiles matched. You can include them and pick one."
	}
	return "No catalog match was found for this photo."
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request, batchID, itemID string) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		CandidateID string `json:"candidate_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.CandidateID == "" {
		h.writeError(w, "candidate_id is required", http.StatusBadRequest)
		return
	}

	var chosen models.Candidate
	err := h.store.UpdateItem(batchID, itemID, func(item *models.ScanItem) error {
		if !item.Status.IsTriaged() {
			return confirm.ErrNotConfirmable
		}
		c := item.FindCandidate(request.CandidateID)
		if c == nil {
			// Suppressed reprints are selectable once the user reveals them.
			for i := range item.Suppressed {
				if item.Suppressed[i].ID == request.CandidateID {
					c = &item.Suppressed[i]
					break
				}
			}
		}
		if c == nil {
			return confirm.ErrStaleSelection
		}
		chosen = *c
		item.HighlightedCandidateID = c.ID
		return nil
	})
	if err != nil {
		h.writeItemError(w, err)
		return
	}

	// Pricing is display-only: looked up in the background once a candidate
	// is chosen, never blocking, failures silent.
	if h.pricing != nil {
		go h.lookupPrice(batchID, itemID, chosen.ID)
	}

	item, _ := h.store.SnapshotItem(batchID, itemID)
	h.writeJSON(w, item)
}

func (h *Handler) lookupPrice(batchID, itemID, candidateID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	price, err := h.pricing.Lookup(ctx, candidateID)
	if err != nil {
		slog.Debug("Pricing lookup failed", "candidate_id", candidateID, "error", err)
		return
	}

	err = h.store.UpdateItem(batchID, itemID, func(item *models.ScanItem) error {
		item.PriceEstimate = price
		return nil
	})
	if err != nil {
		slog.Debug("Discarding price for closed batch", "batch_id", batchID, "error", err)
	}
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request, batchID, itemID string) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		CandidateID string `json:"candidate_id"`
		Fast        bool   `json:"fast"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.CandidateID == "" {
		h.writeError(w, "candidate_id is required", http.StatusBadRequest)
		return
	}

	item, err := h.gate.Confirm(r.Context(), batchID, itemID, request.CandidateID, request.Fast)
	if err != nil {
		h.writeItemError(w, err)
		return
	}

	h.writeJSON(w, item)
}

func (h *Handler) handleSkip(w http.ResponseWriter, r *http.Request, batchID, itemID string) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	item, err := h.gate.Skip(batchID, itemID)
	if err != nil {
		h.writeItemError(w, err)
		return
	}

	h.writeJSON(w, item)
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request, batchID, itemID string) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		CandidateID string `json:"candidate_id"`
		Verdict     string `json:"verdict"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	verdict := feedback.Verdict(request.Verdict)
	if verdict != feedback.VerdictCorrect && verdict != feedback.VerdictIncorrect {
		h.writeError(w, "verdict must be 'correct' or 'incorrect'", http.StatusBadRequest)
		return
	}

	item, ok := h.store.SnapshotItem(batchID, itemID)
	if !ok {
		h.writeError(w, "Scan item not found", http.StatusNotFound)
		return
	}
	if len(item.Candidates) == 0 {
		h.writeError(w, "No delivered match to rate", http.StatusConflict)
		return
	}

	// Default to the delivered top match when no candidate is named.
	c := &item.Candidates[0]
	if request.CandidateID != "" {
		c = item.FindCandidate(request.CandidateID)
		if c == nil {
			h.writeError(w, "Candidate not found on this item", http.StatusConflict)
			return
		}
	}

	if h.feedback != nil {
		h.feedback.Record(c.Title, c.IssueLabel, c.Publisher, c.Year, c.ID, c.Score, verdict)
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeItemError maps pipeline errors onto HTTP statuses.
func (h *Handler) writeItemError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, batch.ErrBatchClosed), errors.Is(err, batch.ErrItemNotFound):
		h.writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, confirm.ErrStaleSelection), errors.Is(err, confirm.ErrNotConfirmable), errors.Is(err, models.ErrInvalidTransition):
		h.writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, confirm.ErrFastConfirmDenied):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	default:
		// Persistence failures land here: the item stays non-terminal and
		// the user may retry the confirmation.
		h.writeError(w, err.Error(), http.StatusBadGateway)
	}
}
