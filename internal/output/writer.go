// Package output writes the per-case result tree.
//
// Layout under <outputRoot>/<case-dir>/:
//
//	case.json                     case-level record
//	court_acts.json               references per source tab
//	cards.json
//	electronic_case.json
//	instances/<folder>/instance.json
//	documents/<docGuid>.json      fetched documents with extracted text
//	README.md                     human-readable summary
//	_progress.json                crawl checkpoint (written elsewhere)
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kadcrawl/kadcrawl/internal/model"
)

// Writer persists crawl results for one case.
type Writer struct {
	dir string
}

// NewWriter creates a Writer for a case under the output root.
func NewWriter(outputRoot, caseNumber string) *Writer {
	return &Writer{dir: filepath.Join(outputRoot, model.SafeCaseDirName(caseNumber))}
}

// Dir returns the case output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteCase writes the case-level record.
func (w *Writer) WriteCase(rec *model.CaseRecord) error {
	return w.writeJSON("case.json", rec)
}

// WriteTabList writes one tab's document references.
func (w *Writer) WriteTabList(tab model.Tab, refs []model.DocumentReference) error {
	if refs == nil {
		refs = []model.DocumentReference{}
	}
	return w.writeJSON(string(tab)+".json", refs)
}

// WriteInstance writes one instance record into its folder.
func (w *Writer) WriteInstance(inst model.InstanceRecord) error {
	return w.writeJSON(filepath.Join("instances", inst.FolderName(), "instance.json"), inst)
}

// WriteDocument writes a fetched document keyed by its document GUID.
func (w *Writer) WriteDocument(rec model.DocumentRecord) error {
	return w.writeJSON(filepath.Join("documents", rec.DocGUID+".json"), rec)
}

// writeJSON writes pretty-printed JSON at a path relative to the case
// directory, creating parent directories as needed.
func (w *Writer) writeJSON(rel string, v any) error {
	path := filepath.Join(w.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", rel, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}
