// Package progress persists the crawl checkpoint.
//
// The checkpoint is a single JSON file inside the case output directory.
// Every commit writes a temp file in the same directory and renames it
// over the old file, so a crash mid-write leaves either the previous
// checkpoint or the new one, never a torn file. Commits are expected
// from one goroutine; the orchestrator owns that discipline.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kadcrawl/kadcrawl/internal/model"
)

// FileName is the checkpoint file name inside a case output directory.
// The underscore prefix keeps it sorted apart from result files.
const FileName = "_progress.json"

// ErrCorruptCheckpoint is returned when an existing checkpoint file
// cannot be parsed. The caller decides whether to abort or start fresh.
var ErrCorruptCheckpoint = errors.New("corrupt progress checkpoint")

// Store reads and writes the checkpoint of one case directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at the case output directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the checkpoint file path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Load reads the checkpoint. Returns (nil, nil) when no checkpoint
// exists, distinguishing a fresh crawl from a failed read.
func (s *Store) Load() (*model.ProgressState, error) {
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read progress checkpoint: %w", err)
	}

	var state model.ProgressState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptCheckpoint, s.Path(), err)
	}
	if state.Completed == nil {
		state.Completed = make(map[string]model.CompletionEntry)
	}
	return &state, nil
}

// Commit durably writes the state. The temp file lives in the target
// directory because rename is only atomic within one filesystem.
func (s *Store) Commit(state *model.ProgressState) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create case directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode progress checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, FileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp checkpoint: %w", err)
	}

	if err := os.Rename(tmpName, s.Path()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace progress checkpoint: %w", err)
	}
	return nil
}
