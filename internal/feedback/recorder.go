// Package feedback records user agreement with delivered matches. It is a
// side channel for future accuracy tuning: it never blocks or alters the
// confirmation path, and recording failures are logged and swallowed.
package feedback

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
)

// Verdict is the user's judgement of the delivered top match.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
)

// Entry is one feedback observation, keyed by the normalized identity of the
// match plus the classifier's own id and score.
type Entry struct {
	MatchKey    string  `parquet:"match_key"`
	CandidateID string  `parquet:"candidate_id"`
	Score       float64 `parquet:"score"`
	Verdict     string  `parquet:"verdict"`
	RecordedAt  int64   `parquet:"recorded_at,timestamp(millisecond)"`
}

// Recorder appends feedback entries to a Parquet dataset on disk, one file
// per server run.
type Recorder struct {
	mu     sync.Mutex
	file   *os.File
	writer *parquet.GenericWriter[Entry]
}

// NewRecorder creates the dataset directory and opens a timestamped file.
func NewRecorder(dir string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create feedback directory: %w", err)
	}

	name := fmt.Sprintf("feedback_%s.parquet", time.Now().Format("2006-01-02_15-04-05"))
	file, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create feedback file: %w", err)
	}

	return &Recorder{
		file:   file,
		writer: parquet.NewGenericWriter[Entry](file),
	}, nil
}

// Record stores one verdict. Errors are swallowed by design; callers must
// never fail a user action because telemetry could not be written.
func (r *Recorder) Record(title, issue, publisher string, year int, candidateID string, score float64, verdict Verdict) {
	entry := Entry{
		MatchKey:    NormalizeKey(title, issue, publisher, year),
		CandidateID: candidateID,
		Score:       score,
		Verdict:     string(verdict),
		RecordedAt:  time.Now().UnixMilli(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.writer.Write([]Entry{entry}); err != nil {
		slog.Warn("Failed to record feedback", "match_key", entry.MatchKey, "error", err)
		return
	}
	// Flush each row group so entries survive an unclean shutdown.
	if err := r.writer.Flush(); err != nil {
		slog.Warn("Failed to flush feedback", "match_key", entry.MatchKey, "error", err)
		return
	}

	slog.Debug("Recorded match feedback", "match_key", entry.MatchKey, "verdict", verdict)
}

// Close finalizes the Parquet footer.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writer.Close(); err != nil {
		return fmt.Errorf("failed to close feedback writer: %w", err)
	}
	return r.file.Close()
}

// NormalizeKey builds the stable identity key for a match: lowercased
// title/issue/publisher/year joined with pipes, whitespace collapsed.
func NormalizeKey(title, issue, publisher string, year int) string {
	norm := func(s string) string {
		return strings.Join(strings.Fields(strings.ToLower(s)), " ")
	}
	return fmt.Sprintf("%s|%s|%s|%d", norm(title), norm(issue), norm(publisher), year)
}
