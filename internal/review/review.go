// Package review shapes a scan item's candidates for user triage: tier
// sections, auto-preselection, and fast-confirm eligibility.
package review

import (
	"github.com/longbox-labs/comicscan/internal/confidence"
	"github.com/longbox-labs/comicscan/internal/models"
)

// Presentation groups candidates into tier sections. Classifier order is
// preserved within each section; ties keep their original return order since
// the classifier's ranking already encodes secondary signals.
type Presentation struct {
	High   []models.Candidate `json:"high"`
	Medium []models.Candidate `json:"medium"`
	Low    []models.Candidate `json:"low"`

	// PreselectedID pre-highlights the first high-tier candidate as a UI
	// convenience. Preselection is never a confirmation.
	PreselectedID string `json:"preselected_id,omitempty"`

	// FastConfirmID is set only when the one-tap shortcut is permitted:
	// the item's top candidate, and only if it sits in the high tier.
	FastConfirmID string `json:"fast_confirm_id,omitempty"`

	// OfferReprints signals that reprint filtering emptied the candidate
	// list; the UI should offer to disable the filter instead of showing a
	// dead end.
	OfferReprints bool `json:"offer_reprints,omitempty"`
}

// Group builds the triage presentation for a scan item.
func Group(item *models.ScanItem) Presentation {
	var p Presentation

	for _, c := range item.Candidates {
		switch confidence.TierFor(c.Score) {
		case models.TierHigh:
			p.High = append(p.High, c)
		case models.TierMedium:
			p.Medium = append(p.Medium, c)
		default:
			p.Low = append(p.Low, c)
		}
	}

	if len(p.High) > 0 {
		p.PreselectedID = p.High[0].ID
	}
	if len(item.Candidates) > 0 {
		top := item.Candidates[0]
		if confidence.TierFor(top.Score) == models.TierHigh {
			p.FastConfirmID = top.ID
		}
	}
	if len(item.Candidates) == 0 && len(item.Suppressed) > 0 {
		p.OfferReprints = true
	}

	return p
}

// FastConfirmAllowed reports whether the one-tap shortcut applies to the
// given candidate: the item's tier must be high and exactly the top
// candidate must be used.
func FastConfirmAllowed(item *models.ScanItem, candidateID string) bool {
	if len(item.Candidates) == 0 {
		return false
	}
	top := item.Candidates[0]
	return top.ID == candidateID && confidence.TierFor(top.Score) == models.TierHigh
}
