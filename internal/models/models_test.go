package models

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{name: "queued to processing", from: StatusQueued, to: StatusProcessing, allowed: true},
		{name: "processing to matchFound", from: StatusProcessing, to: StatusMatchFound, allowed: true},
		{name: "processing to needsReview", from: StatusProcessing, to: StatusNeedsReview, allowed: true},
		{name: "processing to noMatch", from: StatusProcessing, to: StatusNoMatch, allowed: true},
		{name: "matchFound to completed", from: StatusMatchFound, to: StatusCompleted, allowed: true},
		{name: "matchFound to skipped", from: StatusMatchFound, to: StatusSkipped, allowed: true},
		{name: "needsReview to completed", from: StatusNeedsReview, to: StatusCompleted, allowed: true},
		{name: "noMatch to skipped", from: StatusNoMatch, to: StatusSkipped, allowed: true},
		{name: "queued cannot complete", from: StatusQueued, to: StatusCompleted, allowed: false},
		{name: "processing cannot complete directly", from: StatusProcessing, to: StatusCompleted, allowed: false},
		{name: "completed is terminal", from: StatusCompleted, to: StatusSkipped, allowed: false},
		{name: "skipped is terminal", from: StatusSkipped, to: StatusCompleted, allowed: false},
		{name: "nothing re-enters queued", from: StatusNoMatch, to: StatusQueued, allowed: false},
		{name: "no re-processing", from: StatusMatchFound, to: StatusProcessing, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanTransition(tt.from, tt.to)
			if result != tt.allowed {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, result, tt.allowed)
			}
		})
	}
}

func TestTransitionRejectsInvalid(t *testing.T) {
	item := &ScanItem{ID: "item-1", Status: StatusCompleted}

	err := item.Transition(StatusSkipped)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
	if item.Status != StatusCompleted {
		t.Errorf("Failed transition must not mutate status, got %s", item.Status)
	}
}

func TestStatusPredicates(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusSkipped}
	for _, st := range terminal {
		if !st.IsTerminal() {
			t.Errorf("%s should be terminal", st)
		}
	}

	triaged := []Status{StatusMatchFound, StatusNeedsReview, StatusNoMatch}
	for _, st := range triaged {
		if !st.IsTriaged() {
			t.Errorf("%s should be triaged", st)
		}
		if st.IsTerminal() {
			t.Errorf("%s must not be terminal", st)
		}
	}

	for _, st := range []Status{StatusQueued, StatusProcessing} {
		if st.IsTriaged() || st.IsTerminal() {
			t.Errorf("%s must be neither triaged nor terminal", st)
		}
	}
}

func TestAllTerminal(t *testing.T) {
	b := &Batch{Items: []*ScanItem{
		{Status: StatusCompleted},
		{Status: StatusSkipped},
	}}
	if !b.AllTerminal() {
		t.Error("Expected batch with only terminal items to be complete")
	}

	b.Items = append(b.Items, &ScanItem{Status: StatusNeedsReview})
	if b.AllTerminal() {
		t.Error("Batch with a triaged item is not complete")
	}
}

func TestFindCandidate(t *testing.T) {
	item := &ScanItem{Candidates: []Candidate{
		{ID: "asm-129", Title: "The Amazing Spider-Man"},
		{ID: "asm-130", Title: "The Amazing Spider-Man"},
	}}

	if c := item.FindCandidate("asm-130"); c == nil || c.ID != "asm-130" {
		t.Errorf("Expected to find asm-130, got %v", c)
	}
	if c := item.FindCandidate("from-another-item"); c != nil {
		t.Errorf("Expected nil for foreign candidate id, got %v", c)
	}
}
