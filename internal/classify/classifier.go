// Package classify talks to the remote identification service that maps a
// photograph to ranked catalog candidates. The service is a black box; this
// package validates its output at the boundary and quarantines malformed
// entries rather than propagating them downstream.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/longbox-labs/comicscan/internal/models"
)

// Classifier sends one image payload and returns ranked candidates.
// Calls are at-most-once per scan item per processing cycle; callers never
// retry automatically.
type Classifier interface {
	Classify(ctx context.Context, imageData []byte) ([]models.Candidate, error)
}

// New picks a classifier provider from the CLASSIFY_PROVIDER environment
// variable, defaulting to the primary HTTP identification service.
func New() (Classifier, error) {
	provider := os.Getenv("CLASSIFY_PROVIDER")
	if provider == "" {
		provider = "http"
	}

	switch provider {
	case "http":
		return NewHTTPClassifier(), nil
	case "gemini":
		return NewGeminiClassifier(), nil
	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", provider)
	}
}

// rawCandidate mirrors the wire shape before validation.
type rawCandidate struct {
	ID                 string  `json:"id"`
	Title              string  `json:"title"`
	SeriesName         string  `json:"series_name"`
	IssueLabel         string  `json:"issue_label"`
	Publisher          string  `json:"publisher"`
	Year               int     `json:"year"`
	VariantDescription string  `json:"variant_description"`
	Score              float64 `json:"score"`
	IsReprintFlagged   bool    `json:"is_reprint_flagged"`
	ThumbnailURL       string  `json:"thumbnail_url"`
	CoverURL           string  `json:"cover_url"`
	Provenance         string  `json:"provenance"`
}

// validate converts raw wire entries to Candidates, dropping entries that
// violate the contract. Return order is preserved: the classifier's order
// encodes secondary ranking signals and is authoritative for ties.
func validate(raw []rawCandidate, provenance models.Provenance) []models.Candidate {
	candidates := make([]models.Candidate, 0, len(raw))
	for i, rc := range raw {
		if rc.ID == "" || rc.Title == "" {
			slog.Warn("Quarantining malformed candidate", "index", i, "id", rc.ID, "title", rc.Title)
			continue
		}
		if rc.Score < 0 || rc.Score > 1 {
			slog.Warn("Quarantining candidate with out-of-range score", "index", i, "id", rc.ID, "score", rc.Score)
			continue
		}

		p := provenance
		switch models.Provenance(rc.Provenance) {
		case models.ProvenancePrimary, models.ProvenanceCache, models.ProvenanceSecondary:
			p = models.Provenance(rc.Provenance)
		}

		candidates = append(candidates, models.Candidate{
			ID:                 rc.ID,
			Title:              rc.Title,
			SeriesName:         rc.SeriesName,
			IssueLabel:         rc.IssueLabel,
			Publisher:          rc.Publisher,
			Year:               rc.Year,
			VariantDescription: rc.VariantDescription,
			Score:              rc.Score,
			IsReprintFlagged:   rc.IsReprintFlagged,
			ThumbnailURL:       rc.ThumbnailURL,
			CoverURL:           rc.CoverURL,
			Provenance:         p,
		})
	}
	return candidates
}
