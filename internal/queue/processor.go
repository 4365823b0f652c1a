// Package queue drives scan items from queued to a triaged outcome. A single
// worker claims one item at a time, runs the compress/upload/classify
// sequence, and writes the triaged result back through the batch store.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/longbox-labs/comicscan/internal/batch"
	"github.com/longbox-labs/comicscan/internal/classify"
	"github.com/longbox-labs/comicscan/internal/confidence"
	"github.com/longbox-labs/comicscan/internal/imagepipe"
	"github.com/longbox-labs/comicscan/internal/models"
	"github.com/longbox-labs/comicscan/internal/reprint"
)

// Uploader is the compress-then-upload stage of the pipeline.
type Uploader interface {
	Process(ctx context.Context, imageData []byte) ([]byte, *imagepipe.UploadResult, error)
}

// Processor serializes classification work. Only one item is ever in the
// processing state: the worker goroutine is the sole claimer, and the store
// refuses to double-claim even if Kick fires while work is in flight.
type Processor struct {
	store      *batch.Store
	classifier classify.Classifier
	uploader   Uploader
	filter     *reprint.Filter
	wake       chan struct{}
}

// New wires a processor to its collaborators.
func New(store *batch.Store, classifier classify.Classifier, uploader Uploader, filter *reprint.Filter) *Processor {
	return &Processor{
		store:      store,
		classifier: classifier,
		uploader:   uploader,
		filter:     filter,
		wake:       make(chan struct{}, 1),
	}
}

// Kick asks the worker to look for queued work. Safe to call from any
// goroutine and under rapid re-triggering; signals coalesce into the
// buffered channel, and claiming itself is guarded by the store.
func (p *Processor) Kick() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run is the worker loop. It drains all queued items whenever kicked and
// then blocks; there is no polling. Run returns when ctx is cancelled.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.wake:
			p.drain(ctx)
		}
	}
}

// drain claims and processes items until no queued work remains. Completing
// one item (success or failure) is the only trigger that advances to the
// next.
func (p *Processor) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		claim, ok := p.store.ClaimNext()
		if !ok {
			return
		}
		p.processClaim(ctx, claim)
	}
}

// processClaim runs one item through the pipeline and writes the outcome
// back. Failures downgrade the item to noMatch with a readable error; they
// never escape the loop, so one bad photograph cannot halt the batch.
func (p *Processor) processClaim(ctx context.Context, claim *batch.Claim) {
	slog.Info("Processing scan item", "batch_id", claim.BatchID, "item_id", claim.ItemID)

	outcome, err := p.identify(ctx, claim)
	if err != nil {
		slog.Error("Identification failed", "item_id", claim.ItemID, "error", err)
		p.resolve(claim, func(item *models.ScanItem) {
			item.Status = models.StatusNoMatch
			item.Error = "Identification failed: " + err.Error()
		})
		return
	}

	p.resolve(claim, func(item *models.ScanItem) {
		item.ImageURL = outcome.upload.URL
		item.PreviewURL = outcome.upload.PreviewURL
		item.Candidates = outcome.kept
		item.Suppressed = outcome.suppressed

		if len(outcome.kept) == 0 {
			item.Status = models.StatusNoMatch
			return
		}

		tier := confidence.TierFor(outcome.kept[0].Score)
		item.ConfidenceTier = &tier
		if tier == models.TierHigh {
			item.Status = models.StatusMatchFound
		} else {
			item.Status = models.StatusNeedsReview
		}
	})
}

type identifyOutcome struct {
	upload     *imagepipe.UploadResult
	kept       []models.Candidate
	suppressed []models.Candidate
}

// identify performs, in order: image normalization and durable upload, the
// remote classification call, then reprint filtering. Filtering happens
// before tiering so tier membership reflects only surviving candidates.
func (p *Processor) identify(ctx context.Context, claim *batch.Claim) (*identifyOutcome, error) {
	imageData, err := os.ReadFile(claim.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read photograph: %w", err)
	}

	compressed, upload, err := p.uploader.Process(ctx, imageData)
	if err != nil {
		return nil, err
	}

	candidates, err := p.classifier.Classify(ctx, compressed)
	if err != nil {
		return nil, err
	}

	kept, suppressed := p.filter.Apply(candidates, !claim.IncludeReprints)
	if len(kept) > models.MaxCandidates {
		kept = kept[:models.MaxCandidates]
	}
	if len(suppressed) > models.MaxCandidates {
		suppressed = suppressed[:models.MaxCandidates]
	}

	return &identifyOutcome{upload: upload, kept: kept, suppressed: suppressed}, nil
}

// resolve applies a write-back, discarding results that lost their claim.
// A result landing after a session reset must not mutate surviving state.
func (p *Processor) resolve(claim *batch.Claim, mutate func(*models.ScanItem)) {
	err := p.store.Resolve(claim, mutate)
	switch {
	case err == nil:
	case errors.Is(err, batch.ErrBatchClosed), errors.Is(err, batch.ErrStaleClaim), errors.Is(err, batch.ErrItemNotFound):
		slog.Info("Discarding stale classification result", "batch_id", claim.BatchID, "item_id", claim.ItemID, "reason", err)
	default:
		slog.Error("Failed to write back scan result", "item_id", claim.ItemID, "error", err)
	}
}
