package batch

import (
	"errors"
	"testing"
	"time"

	"github.com/longbox-labs/comicscan/internal/models"
)

func newTestBatch(id string, itemIDs ...string) *models.Batch {
	b := &models.Batch{ID: id, CreatedAt: time.Now()}
	for _, itemID := range itemIDs {
		b.Items = append(b.Items, &models.ScanItem{
			ID:        itemID,
			ImagePath: "/photos/" + itemID + ".jpg",
			Status:    models.StatusQueued,
			CreatedAt: time.Now(),
		})
	}
	return b
}

func TestClaimNextFIFO(t *testing.T) {
	store := New()
	store.Add(newTestBatch("b1", "i1", "i2"))
	store.Add(newTestBatch("b2", "i3"))

	var order []string
	for {
		claim, ok := store.ClaimNext()
		if !ok {
			break
		}
		order = append(order, claim.ItemID)
		// Finish the claim so the next one can be made.
		if err := store.Resolve(claim, func(item *models.ScanItem) {
			item.Status = models.StatusNoMatch
		}); err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
	}

	expected := []string{"i1", "i2", "i3"}
	if len(order) != len(expected) {
		t.Fatalf("Expected %d claims, got %d", len(expected), len(order))
	}
	for i, id := range expected {
		if order[i] != id {
			t.Errorf("Claim %d: expected %s, got %s", i, id, order[i])
		}
	}
}

func TestClaimNextSingleFlight(t *testing.T) {
	store := New()
	store.Add(newTestBatch("b1", "i1", "i2"))

	claim, ok := store.ClaimNext()
	if !ok {
		t.Fatal("Expected first claim to succeed")
	}

	// A second claim while i1 is processing must be refused, even though i2
	// is queued.
	if _, ok := store.ClaimNext(); ok {
		t.Fatal("Double-claim while an item is processing")
	}

	if err := store.Resolve(claim, func(item *models.ScanItem) {
		item.Status = models.StatusMatchFound
	}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	second, ok := store.ClaimNext()
	if !ok || second.ItemID != "i2" {
		t.Fatalf("Expected i2 claimable after i1 resolved, got %v ok=%v", second, ok)
	}
}

func TestResolveAfterCloseIsRejected(t *testing.T) {
	store := New()
	store.Add(newTestBatch("b1", "i1"))

	claim, ok := store.ClaimNext()
	if !ok {
		t.Fatal("Expected claim to succeed")
	}

	if !store.Close("b1") {
		t.Fatal("Close failed")
	}

	err := store.Resolve(claim, func(item *models.ScanItem) {
		t.Error("Mutation ran against a closed batch")
	})
	if !errors.Is(err, ErrBatchClosed) {
		t.Errorf("Expected ErrBatchClosed, got %v", err)
	}
}

func TestResolveRejectsNonProcessingItem(t *testing.T) {
	store := New()
	store.Add(newTestBatch("b1", "i1"))

	claim, ok := store.ClaimNext()
	if !ok {
		t.Fatal("Expected claim to succeed")
	}
	if err := store.Resolve(claim, func(item *models.ScanItem) {
		item.Status = models.StatusNoMatch
	}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Replaying the same claim must be rejected: the item already left
	// processing.
	err := store.Resolve(claim, func(item *models.ScanItem) {
		t.Error("Replayed mutation ran")
	})
	if !errors.Is(err, ErrStaleClaim) {
		t.Errorf("Expected ErrStaleClaim, got %v", err)
	}
}

func TestUpdateItemByID(t *testing.T) {
	store := New()
	store.Add(newTestBatch("b1", "i1", "i2"))

	err := store.UpdateItem("b1", "i2", func(item *models.ScanItem) error {
		item.Error = "touched"
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}

	item, ok := store.SnapshotItem("b1", "i2")
	if !ok || item.Error != "touched" {
		t.Errorf("Expected i2 mutated, got %v", item)
	}

	untouched, _ := store.SnapshotItem("b1", "i1")
	if untouched.Error != "" {
		t.Error("UpdateItem mutated the wrong item")
	}

	if err := store.UpdateItem("b1", "missing", func(*models.ScanItem) error { return nil }); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound, got %v", err)
	}
	if err := store.UpdateItem("missing", "i1", func(*models.ScanItem) error { return nil }); !errors.Is(err, ErrBatchClosed) {
		t.Errorf("Expected ErrBatchClosed, got %v", err)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	store := New()
	b := newTestBatch("b1", "i1")
	b.Items[0].Candidates = []models.Candidate{{ID: "c1", Title: "Daredevil"}}
	store.Add(b)

	snap, ok := store.Snapshot("b1")
	if !ok {
		t.Fatal("Snapshot failed")
	}
	snap.Items[0].Candidates[0].Title = "mutated"
	snap.Items[0].Status = models.StatusSkipped

	fresh, _ := store.SnapshotItem("b1", "i1")
	if fresh.Candidates[0].Title != "Daredevil" || fresh.Status != models.StatusQueued {
		t.Error("Snapshot shares state with the live batch")
	}
}

func TestHasQueued(t *testing.T) {
	store := New()
	if store.HasQueued() {
		t.Error("Empty store has no queued work")
	}

	store.Add(newTestBatch("b1", "i1"))
	if !store.HasQueued() {
		t.Error("Expected queued work")
	}

	claim, _ := store.ClaimNext()
	if err := store.Resolve(claim, func(item *models.ScanItem) {
		item.Status = models.StatusNoMatch
	}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if store.HasQueued() {
		t.Error("No queued work should remain")
	}
}
