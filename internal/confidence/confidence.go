package confidence

import "github.com/longbox-labs/comicscan/internal/models"

// Tier thresholds for batch triage. Fixed, not learned.
const (
	HighThreshold   = 0.80
	MediumThreshold = 0.50
)

// Single-photo checkpoints. The "pretty confident" checkpoint reuses the
// high-tier threshold; both checkpoints read the same score the tier was
// derived from, never a recomputed one.
const LockedInThreshold = 0.90

// TierFor maps a top-candidate score to its confidence tier. Pure and total:
// every score maps to exactly one tier.
func TierFor(score float64) models.Tier {
	switch {
	case score >= HighThreshold:
		return models.TierHigh
	case score >= MediumThreshold:
		return models.TierMedium
	default:
		return models.TierLow
	}
}

// Checkpoint names the finer-grained confidence levels used by the
// single-photo flow.
type Checkpoint string

const (
	CheckpointLockedIn        Checkpoint = "locked_in"
	CheckpointPrettyConfident Checkpoint = "pretty_confident"
	CheckpointManual          Checkpoint = "manual"
)

// CheckpointFor maps a score to the single-photo checkpoint. It shares the
// score with TierFor; callers must pass the identical value to both.
func CheckpointFor(score float64) Checkpoint {
	switch {
	case score >= LockedInThreshold:
		return CheckpointLockedIn
	case score >= HighThreshold:
		return CheckpointPrettyConfident
	default:
		return CheckpointManual
	}
}

// Copy returns the user-facing phrasing for a checkpoint.
func (c Checkpoint) Copy() string {
	switch c {
	case CheckpointLockedIn:
		return "Locked in"
	case CheckpointPrettyConfident:
		return "Pretty confident"
	default:
		return "Needs a manual look"
	}
}
