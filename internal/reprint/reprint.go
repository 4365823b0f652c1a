// Package reprint suppresses near-duplicate reissue matches (facsimiles,
// reprints, replicas) that would otherwise pollute high-confidence
// auto-selection.
package reprint

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/longbox-labs/comicscan/internal/models"
	"gopkg.in/yaml.v3"
)

// defaultKeywords is the fixed case-insensitive keyword set matched against
// a candidate's combined descriptive text.
var defaultKeywords = []string{
	"facsimile",
	"reprint",
	"anniversary edition",
	"replica",
	"reproduction",
	"variant facsimile",
	"true believers",
}

// nthPrintPattern catches later printings described as "2nd print",
// "third printing", and similar.
var nthPrintPattern = regexp.MustCompile(`(\d+(st|nd|rd|th)|second|third|fourth|fifth)\s+print`)

// Filter decides which candidates survive reprint suppression.
type Filter struct {
	keywords []string
}

// NewFilter returns a filter with the built-in keyword set.
func NewFilter() *Filter {
	return &Filter{keywords: defaultKeywords}
}

// NewFilterFromFile extends the built-in keyword set with extra keywords
// from a YAML file (a plain sequence of strings).
func NewFilterFromFile(path string) (*Filter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyword file: %w", err)
	}

	var extra []string
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("failed to parse keyword file: %w", err)
	}

	keywords := make([]string, 0, len(defaultKeywords)+len(extra))
	keywords = append(keywords, defaultKeywords...)
	for _, kw := range extra {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}

	return &Filter{keywords: keywords}, nil
}

// IsReprint reports whether a candidate looks like a reprint or facsimile,
// either by keyword match on its combined text fields or by the
// classifier's own reprint flag.
func (f *Filter) IsReprint(c models.Candidate) bool {
	if c.IsReprintFlagged {
		return true
	}

	combined := strings.ToLower(c.Title + " " + c.SeriesName + " " + c.VariantDescription)
	for _, kw := range f.keywords {
		if strings.Contains(combined, kw) {
			return true
		}
	}
	return nthPrintPattern.MatchString(combined)
}

// Apply splits candidates into survivors and suppressed, preserving order.
// When exclude is false the filter is a no-op and every candidate survives.
// Apply is idempotent: filtering an already-filtered list returns it
// unchanged.
func (f *Filter) Apply(candidates []models.Candidate, exclude bool) (kept, suppressed []models.Candidate) {
	if !exclude {
		return candidates, nil
	}

	kept = make([]models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if f.IsReprint(c) {
			suppressed = append(suppressed, c)
			continue
		}
		kept = append(kept, c)
	}
	return kept, suppressed
}
