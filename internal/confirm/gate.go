// Package confirm implements the confirmation gate: the only path by which a
// selected candidate becomes a persisted catalog record. Persistence always
// requires an explicit user action; nothing here is ever triggered
// automatically.
package confirm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/longbox-labs/comicscan/internal/batch"
	"github.com/longbox-labs/comicscan/internal/catalog"
	"github.com/longbox-labs/comicscan/internal/models"
	"github.com/longbox-labs/comicscan/internal/review"
)

// ErrStaleSelection rejects candidates that are not members of the item's
// candidate list, e.g. a selection carried over from a previously reviewed
// item. This is a programming-contract violation, not a user-facing error.
var ErrStaleSelection = fmt.Errorf("candidate does not belong to this scan item")

// ErrNotConfirmable rejects confirm/skip on items that have not reached a
// triaged state, or that are already terminal.
var ErrNotConfirmable = fmt.Errorf("scan item is not awaiting a decision")

// ErrFastConfirmDenied rejects the one-tap shortcut outside its narrow
// eligibility window.
var ErrFastConfirmDenied = fmt.Errorf("fast confirm requires the top high-confidence candidate")

// RecordCreator is the persistence backend surface the gate needs.
type RecordCreator interface {
	CreateRecord(ctx context.Context, record catalog.CreateRecordRequest) (string, error)
}

// Gate turns confirmed candidates into catalog records.
type Gate struct {
	store   *batch.Store
	catalog RecordCreator
}

// New wires the gate to the store and persistence backend.
func New(store *batch.Store, rc RecordCreator) *Gate {
	return &Gate{store: store, catalog: rc}
}

// Confirm persists the chosen candidate for a scan item and transitions it
// to completed. On persistence failure the item keeps its pre-confirmation
// status and the error is returned for retry; confirmation is retryable,
// unlike classification.
func (g *Gate) Confirm(ctx context.Context, batchID, itemID, candidateID string, fast bool) (*models.ScanItem, error) {
	var chosen models.Candidate
	var record catalog.CreateRecordRequest

	// Validate and reserve the selection under the store lock.
	err := g.store.UpdateItem(batchID, itemID, func(item *models.ScanItem) error {
		if !item.Status.IsTriaged() {
			return fmt.Errorf("%w: status %s", ErrNotConfirmable, item.Status)
		}
		c := findMember(item, candidateID)
		if c == nil {
			return ErrStaleSelection
		}
		if fast && !review.FastConfirmAllowed(item, candidateID) {
			return ErrFastConfirmDenied
		}
		chosen = *c
		item.SelectedCandidateID = chosen.ID
		record = MapRecord(item, chosen)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Persistence runs outside the lock; it is the slow external call.
	recordID, err := g.catalog.CreateRecord(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to persist catalog record: %w", err)
	}

	err = g.store.UpdateItem(batchID, itemID, func(item *models.ScanItem) error {
		if err := item.Transition(models.StatusCompleted); err != nil {
			return err
		}
		item.PersistedRecordID = recordID
		item.Error = ""
		return nil
	})
	if err != nil {
		// The record exists but the item changed underneath us (skip or
		// reset raced the persistence call). Surface it loudly.
		slog.Error("Persisted record orphaned by concurrent item change", "batch_id", batchID, "item_id", itemID, "record_id", recordID, "error", err)
		return nil, fmt.Errorf("item changed during confirmation (record %s created): %w", recordID, err)
	}

	slog.Info("Scan item confirmed", "batch_id", batchID, "item_id", itemID, "candidate_id", candidateID, "record_id", recordID, "fast", fast)

	item, _ := g.store.SnapshotItem(batchID, itemID)
	return item, nil
}

// Skip marks a triaged item as skipped. Terminal and mutually exclusive with
// completed.
func (g *Gate) Skip(batchID, itemID string) (*models.ScanItem, error) {
	err := g.store.UpdateItem(batchID, itemID, func(item *models.ScanItem) error {
		if !item.Status.IsTriaged() {
			return fmt.Errorf("%w: status %s", ErrNotConfirmable, item.Status)
		}
		return item.Transition(models.StatusSkipped)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Scan item skipped", "batch_id", batchID, "item_id", itemID)
	item, _ := g.store.SnapshotItem(batchID, itemID)
	return item, nil
}

// findMember checks candidate identity against the item's own candidates,
// including reprint-suppressed ones, which stay confirmable when the user
// turns the filter off.
func findMember(item *models.ScanItem, candidateID string) *models.Candidate {
	if c := item.FindCandidate(candidateID); c != nil {
		return c
	}
	for i := range item.Suppressed {
		if item.Suppressed[i].ID == candidateID {
			return &item.Suppressed[i]
		}
	}
	return nil
}

// MapRecord builds the record-creation request from a confirmed candidate.
// The series name takes the primary title field; a story title that differs
// from the series name is demoted to the variant notes.
func MapRecord(item *models.ScanItem, c models.Candidate) catalog.CreateRecordRequest {
	title := c.SeriesName
	if title == "" {
		title = c.Title
	}

	notes := c.VariantDescription
	if c.SeriesName != "" && c.Title != "" && !strings.EqualFold(c.Title, c.SeriesName) {
		if notes != "" {
			notes = c.Title + "; " + notes
		} else {
			notes = c.Title
		}
	}

	return catalog.CreateRecordRequest{
		Title:             title,
		SeriesName:        c.SeriesName,
		IssueLabel:        c.IssueLabel,
		Publisher:         c.Publisher,
		Year:              c.Year,
		VariantNotes:      notes,
		ImageURL:          item.ImageURL,
		PreviewURL:        item.PreviewURL,
		SourceCandidateID: c.ID,
		SourceProvenance:  string(c.Provenance),
		SourceScore:       c.Score,
	}
}
