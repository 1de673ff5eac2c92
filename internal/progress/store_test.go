package progress

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kadcrawl/kadcrawl/internal/model"
)

func TestStoreLoadMissing(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir())
	state, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if state != nil {
		t.Errorf("Load() without checkpoint = %+v, want nil", state)
	}
}

func TestStoreCommitAndLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewStore(dir)

	state := model.NewProgressState("А40-12345/2024")
	state.RunID = "run-1"
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	state.MarkDone(model.Identity{CaseGUID: "c1", DocGUID: "d1"}, false, now)
	state.MarkSkipped(model.Identity{CaseGUID: "c1", DocGUID: "d2"}, "retries exhausted", now)

	if err := s.Commit(state); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got == nil {
		t.Fatal("Load() = nil after Commit()")
	}
	if got.CaseNumber != state.CaseNumber {
		t.Errorf("CaseNumber = %q, want %q", got.CaseNumber, state.CaseNumber)
	}
	if got.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", got.RunID)
	}
	if !got.IsComplete(model.Identity{CaseGUID: "c1", DocGUID: "d1"}) {
		t.Error("done identity missing after reload")
	}
	if got.DoneCount() != 1 || got.SkippedCount() != 1 {
		t.Errorf("counts = %d done, %d skipped, want 1/1", got.DoneCount(), got.SkippedCount())
	}
	if e := got.Completed["c1/d2"]; e.Reason != "retries exhausted" {
		t.Errorf("skip reason = %q, want %q", e.Reason, "retries exhausted")
	}
}

func TestStoreCommitCreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "case")
	s := NewStore(dir)

	if err := s.Commit(model.NewProgressState("А40-1/2024")); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if _, err := os.Stat(s.Path()); err != nil {
		t.Errorf("checkpoint missing after Commit(): %v", err)
	}
}

func TestStoreCommitReplacesAtomically(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewStore(dir)

	state := model.NewProgressState("А40-1/2024")
	if err := s.Commit(state); err != nil {
		t.Fatalf("first Commit() error = %v", err)
	}
	state.MarkDone(model.Identity{CaseGUID: "c", DocGUID: "d"}, false, time.Now())
	if err := s.Commit(state); err != nil {
		t.Fatalf("second Commit() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the checkpoint (no temp leftovers)", len(entries))
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.DoneCount() != 1 {
		t.Errorf("DoneCount() = %d, want 1", got.DoneCount())
	}
}

func TestStoreLoadCorrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := NewStore(dir).Load()
	if !errors.Is(err, ErrCorruptCheckpoint) {
		t.Errorf("Load() error = %v, want ErrCorruptCheckpoint", err)
	}
}

func TestStoreLoadNilCompletedMap(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(`{"caseNumber":"А40-1/2024"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := NewStore(dir).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Completed == nil {
		t.Error("Completed map not initialized for sparse checkpoint")
	}
}
