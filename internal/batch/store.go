// Package batch owns the scan item collection. All mutation goes through
// id-addressed updates so user actions (select, confirm, skip) and processor
// write-backs can interleave safely across items; positional access is never
// exposed.
package batch

import (
	"fmt"
	"sync"

	"github.com/longbox-labs/comicscan/internal/models"
)

// ErrBatchClosed gates write-backs that resolve after a session reset.
var ErrBatchClosed = fmt.Errorf("batch closed")

// ErrItemNotFound is returned for unknown item ids.
var ErrItemNotFound = fmt.Errorf("scan item not found")

// ErrStaleClaim is returned when a processor write-back no longer matches
// the claimed item's generation.
var ErrStaleClaim = fmt.Errorf("stale processing claim")

type batchState struct {
	batch *models.Batch
	epoch uint64
}

// Store holds all live batches for the session, keyed by batch id and
// ordered by creation for FIFO claims.
type Store struct {
	mu      sync.RWMutex
	batches map[string]*batchState
	order   []string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		batches: make(map[string]*batchState),
	}
}

// Add registers a freshly submitted batch.
func (s *Store) Add(b *models.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[b.ID] = &batchState{batch: b}
	s.order = append(s.order, b.ID)
}

// Snapshot returns a deep copy of a batch so callers can serialize it while
// the processor keeps mutating the live items.
func (s *Store) Snapshot(batchID string) (*models.Batch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.batches[batchID]
	if !ok {
		return nil, false
	}
	return copyBatch(state.batch), true
}

// SnapshotItem returns a deep copy of one scan item.
func (s *Store) SnapshotItem(batchID, itemID string) (*models.ScanItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.batches[batchID]
	if !ok {
		return nil, false
	}
	for _, item := range state.batch.Items {
		if item.ID == itemID {
			c := copyItem(item)
			return c, true
		}
	}
	return nil, false
}

// Snapshots returns deep copies of every live batch in creation order.
func (s *Store) Snapshots() []*models.Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Batch, 0, len(s.order))
	for _, id := range s.order {
		if state, ok := s.batches[id]; ok {
			out = append(out, copyBatch(state.batch))
		}
	}
	return out
}

// Close discards a batch and all of its non-terminal items. The epoch bump
// plus removal guarantees any in-flight classification result for the batch
// is rejected on write-back.
func (s *Store) Close(batchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.batches[batchID]
	if !ok {
		return false
	}
	state.epoch++
	delete(s.batches, batchID)
	for i, id := range s.order {
		if id == batchID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Claim identifies one item transitioned to processing, pinned to the batch
// generation observed at claim time.
type Claim struct {
	BatchID         string
	ItemID          string
	Epoch           uint64
	ImagePath       string
	IncludeReprints bool
}

// ClaimNext transitions the first queued item (FIFO across batches by
// creation order) to processing and returns its claim. It refuses to claim
// while any item anywhere is processing: classification and upload are
// single-flight resources, so this mutual exclusion is a hard invariant.
func (s *Store) ClaimNext() (*Claim, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		state, ok := s.batches[id]
		if !ok {
			continue
		}
		for _, item := range state.batch.Items {
			if item.Status == models.StatusProcessing {
				return nil, false
			}
		}
	}

	for _, id := range s.order {
		state, ok := s.batches[id]
		if !ok {
			continue
		}
		for _, item := range state.batch.Items {
			if item.Status != models.StatusQueued {
				continue
			}
			item.Status = models.StatusProcessing
			return &Claim{
				BatchID:         id,
				ItemID:          item.ID,
				Epoch:           state.epoch,
				ImagePath:       item.ImagePath,
				IncludeReprints: state.batch.IncludeReprints,
			}, true
		}
	}
	return nil, false
}

// Resolve applies a processor write-back for a claimed item. Results that
// arrive after the batch was closed, or that carry a stale generation, are
// rejected and must be discarded by the caller.
func (s *Store) Resolve(claim *Claim, mutate func(*models.ScanItem)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.batches[claim.BatchID]
	if !ok {
		return ErrBatchClosed
	}
	if state.epoch != claim.Epoch {
		return ErrStaleClaim
	}
	for _, item := range state.batch.Items {
		if item.ID == claim.ItemID {
			if item.Status != models.StatusProcessing {
				return ErrStaleClaim
			}
			mutate(item)
			return nil
		}
	}
	return ErrItemNotFound
}

// UpdateItem applies a user-triggered mutation to one item, addressed by id.
// The mutation runs under the store lock; it must not block.
func (s *Store) UpdateItem(batchID, itemID string, mutate func(*models.ScanItem) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.batches[batchID]
	if !ok {
		return ErrBatchClosed
	}
	for _, item := range state.batch.Items {
		if item.ID == itemID {
			return mutate(item)
		}
	}
	return ErrItemNotFound
}

// HasQueued reports whether any live batch still has queued work.
func (s *Store) HasQueued() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, state := range s.batches {
		for _, item := range state.batch.Items {
			if item.Status == models.StatusQueued {
				return true
			}
		}
	}
	return false
}

func copyBatch(b *models.Batch) *models.Batch {
	out := &models.Batch{
		ID:              b.ID,
		IncludeReprints: b.IncludeReprints,
		CreatedAt:       b.CreatedAt,
		Items:           make([]*models.ScanItem, 0, len(b.Items)),
	}
	for _, item := range b.Items {
		out.Items = append(out.Items, copyItem(item))
	}
	return out
}

func copyItem(item *models.ScanItem) *models.ScanItem {
	c := *item
	c.Candidates = append([]models.Candidate(nil), item.Candidates...)
	c.Suppressed = append([]models.Candidate(nil), item.Suppressed...)
	if item.ConfidenceTier != nil {
		tier := *item.ConfidenceTier
		c.ConfidenceTier = &tier
	}
	return &c
}
