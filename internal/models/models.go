package models

import (
	"fmt"
	"time"
)

// Status tracks a scan item through the identification lifecycle.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusProcessing  Status = "processing"
	StatusMatchFound  Status = "matchFound"
	StatusNeedsReview Status = "needsReview"
	StatusNoMatch     Status = "noMatch"
	StatusCompleted   Status = "completed"
	StatusSkipped     Status = "skipped"
)

// Tier is the coarse confidence bucket derived from the top candidate score.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Provenance identifies which source produced a candidate match. Display and
// telemetry only, never used for ranking.
type Provenance string

const (
	ProvenancePrimary   Provenance = "primary"
	ProvenanceCache     Provenance = "cache"
	ProvenanceSecondary Provenance = "secondary"
)

// MaxCandidates is the number of candidates retained per scan item for
// review, even when the classifier returns more.
const MaxCandidates = 5

// Candidate is one ranked classification result for one photograph.
// Candidates are immutable once returned by the classifier; the pipeline
// only selects among them.
type Candidate struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	SeriesName         string     `json:"series_name,omitempty"`
	IssueLabel         string     `json:"issue_label,omitempty"`
	Publisher          string     `json:"publisher,omitempty"`
	Year               int        `json:"year,omitempty"`
	VariantDescription string     `json:"variant_description,omitempty"`
	Score              float64    `json:"score"`
	IsReprintFlagged   bool       `json:"is_reprint_flagged,omitempty"`
	ThumbnailURL       string     `json:"thumbnail_url,omitempty"`
	CoverURL           string     `json:"cover_url,omitempty"`
	Provenance         Provenance `json:"provenance,omitempty"`
}

// ScanItem is the unit of work: one photograph moving through
// identification to a terminal outcome.
type ScanItem struct {
	ID             string      `json:"id"`
	ImagePath      string      `json:"image_path"`
	ImageURL       string      `json:"image_url,omitempty"`
	PreviewURL     string      `json:"preview_url,omitempty"`
	Status         Status      `json:"status"`
	Candidates     []Candidate `json:"candidates"`
	Suppressed     []Candidate `json:"suppressed,omitempty"`
	ConfidenceTier *Tier       `json:"confidence_tier,omitempty"`

	// HighlightedCandidateID is the UI highlight. A convenience only;
	// SelectedCandidateID is written exclusively by the confirmation gate.
	HighlightedCandidateID string    `json:"highlighted_candidate_id,omitempty"`
	SelectedCandidateID    string    `json:"selected_candidate_id,omitempty"`
	PersistedRecordID      string    `json:"persisted_record_id,omitempty"`
	Error                  string    `json:"error,omitempty"`
	PriceEstimate          string    `json:"price_estimate,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
}

// Batch groups the scan items submitted together in one session.
type Batch struct {
	ID              string      `json:"id"`
	Items           []*ScanItem `json:"items"`
	IncludeReprints bool        `json:"include_reprints"`
	CreatedAt       time.Time   `json:"created_at"`
}

// ErrInvalidTransition is wrapped by Transition errors so callers can
// distinguish contract violations from I/O failures.
var ErrInvalidTransition = fmt.Errorf("invalid status transition")

var transitions = map[Status][]Status{
	StatusQueued:      {StatusProcessing},
	StatusProcessing:  {StatusMatchFound, StatusNeedsReview, StatusNoMatch},
	StatusMatchFound:  {StatusCompleted, StatusSkipped},
	StatusNeedsReview: {StatusCompleted, StatusSkipped},
	StatusNoMatch:     {StatusCompleted, StatusSkipped},
}

// CanTransition reports whether moving from one status to another is legal.
// completed and skipped are terminal; nothing re-enters queued.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition mutates the item status after validating the move.
func (s *ScanItem) Transition(to Status) error {
	if !CanTransition(s.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
	}
	s.Status = to
	return nil
}

// IsTerminal reports whether no further transitions are possible.
func (st Status) IsTerminal() bool {
	return st == StatusCompleted || st == StatusSkipped
}

// IsTriaged reports whether the item has finished classification and is
// waiting on a user decision. Skip and confirm are only legal here.
func (st Status) IsTriaged() bool {
	return st == StatusMatchFound || st == StatusNeedsReview || st == StatusNoMatch
}

// AllTerminal reports whether every item in the batch reached a terminal
// state, i.e. the batch is complete.
func (b *Batch) AllTerminal() bool {
	for _, item := range b.Items {
		if !item.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// FindCandidate returns the candidate with the given id from the item's
// retained candidates, or nil. Identity is checked by classifier id, never
// by position, so a selection carried over from another item never matches.
func (s *ScanItem) FindCandidate(id string) *Candidate {
	for i := range s.Candidates {
		if s.Candidates[i].ID == id {
			return &s.Candidates[i]
		}
	}
	return nil
}
