package reprint

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/longbox-labs/comicscan/internal/models"
)

func TestIsReprint(t *testing.T) {
	filter := NewFilter()

	tests := []struct {
		name      string
		candidate models.Candidate
		expected  bool
	}{
		{
			name:      "clean candidate survives",
			candidate: models.Candidate{Title: "The Night Gwen Stacy Died", SeriesName: "The Amazing Spider-Man"},
			expected:  false,
		},
		{
			name:      "facsimile in title",
			candidate: models.Candidate{Title: "Amazing Fantasy #15 Facsimile Edition"},
			expected:  true,
		},
		{
			name:      "keyword match is case-insensitive",
			candidate: models.Candidate{Title: "Giant-Size X-Men", VariantDescription: "REPRINT of the 1975 original"},
			expected:  true,
		},
		{
			name:      "keyword in series name",
			candidate: models.Candidate{Title: "Origin of the Silver Surfer", SeriesName: "True Believers: Fantastic Four"},
			expected:  true,
		},
		{
			name:      "nth printing in variant",
			candidate: models.Candidate{Title: "Spawn", VariantDescription: "2nd print cover"},
			expected:  true,
		},
		{
			name:      "spelled-out printing",
			candidate: models.Candidate{Title: "Spawn", VariantDescription: "Third printing"},
			expected:  true,
		},
		{
			name:      "anniversary edition",
			candidate: models.Candidate{Title: "Batman: The Killing Joke", VariantDescription: "30th Anniversary Edition"},
			expected:  true,
		},
		{
			name:      "classifier flag wins even without keywords",
			candidate: models.Candidate{Title: "Detective Comics", IsReprintFlagged: true},
			expected:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := filter.IsReprint(tt.candidate)
			if result != tt.expected {
				t.Errorf("Expected IsReprint=%v for %q, got %v", tt.expected, tt.candidate.Title, result)
			}
		})
	}
}

func TestApply(t *testing.T) {
	filter := NewFilter()
	candidates := []models.Candidate{
		{ID: "a", Title: "Uncanny X-Men", Score: 0.91},
		{ID: "b", Title: "Uncanny X-Men Facsimile Edition", Score: 0.88},
		{ID: "c", Title: "X-Men Annual", Score: 0.45},
	}

	kept, suppressed := filter.Apply(candidates, true)

	if len(kept) != 2 || kept[0].ID != "a" || kept[1].ID != "c" {
		t.Errorf("Expected kept [a c], got %v", kept)
	}
	if len(suppressed) != 1 || suppressed[0].ID != "b" {
		t.Errorf("Expected suppressed [b], got %v", suppressed)
	}
}

func TestApplyDisabled(t *testing.T) {
	filter := NewFilter()
	candidates := []models.Candidate{
		{ID: "a", Title: "Facsimile Edition", Score: 0.9},
	}

	kept, suppressed := filter.Apply(candidates, false)
	if len(kept) != 1 || len(suppressed) != 0 {
		t.Errorf("Disabled filter must keep everything, got kept=%d suppressed=%d", len(kept), len(suppressed))
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	filter := NewFilter()
	candidates := []models.Candidate{
		{ID: "a", Title: "Uncanny X-Men", Score: 0.91},
		{ID: "b", Title: "Replica Edition", Score: 0.88},
		{ID: "c", Title: "X-Men Annual", Score: 0.45},
	}

	once, _ := filter.Apply(candidates, true)
	twice, suppressed := filter.Apply(once, true)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Filtering an already-filtered list must be a no-op: %v vs %v", once, twice)
	}
	if len(suppressed) != 0 {
		t.Errorf("Second pass must suppress nothing, got %v", suppressed)
	}
}

func TestApplyPreservesOrder(t *testing.T) {
	filter := NewFilter()
	// Tied scores: classifier return order is authoritative.
	candidates := []models.Candidate{
		{ID: "first", Title: "Action Comics", Score: 0.7},
		{ID: "second", Title: "Action Comics", Score: 0.7},
		{ID: "third", Title: "Action Comics", Score: 0.7},
	}

	kept, _ := filter.Apply(candidates, true)
	for i, id := range []string{"first", "second", "third"} {
		if kept[i].ID != id {
			t.Fatalf("Expected %s at position %d, got %s", id, i, kept[i].ID)
		}
	}
}

func TestNewFilterFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "keywords.yaml")
	if err := os.WriteFile(path, []byte("- newsstand copy\n- \" Promo \"\n"), 0644); err != nil {
		t.Fatalf("Failed to write keyword file: %v", err)
	}

	filter, err := NewFilterFromFile(path)
	if err != nil {
		t.Fatalf("NewFilterFromFile failed: %v", err)
	}

	if !filter.IsReprint(models.Candidate{Title: "Superman Newsstand Copy"}) {
		t.Error("Expected extra keyword to match")
	}
	if !filter.IsReprint(models.Candidate{Title: "Batman promo giveaway"}) {
		t.Error("Expected trimmed lowercase keyword to match")
	}
	if !filter.IsReprint(models.Candidate{Title: "Facsimile Edition"}) {
		t.Error("Built-in keywords must still apply")
	}
}

func TestNewFilterFromFileMissing(t *testing.T) {
	if _, err := NewFilterFromFile("/nonexistent/keywords.yaml"); err == nil {
		t.Error("Expected error for missing keyword file")
	}
}
