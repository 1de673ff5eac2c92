// Package database stores crawl history in SQLite.
//
// The archive database is a convenience layer over the JSON output: it
// answers "when did I last crawl this case" and "what changed since"
// without walking output directories. It is never the resume source of
// truth; that is the per-case progress checkpoint.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kadcrawl/kadcrawl/internal/model"
)

// ErrNoSnapshots is returned when a diff or history query finds nothing
// for the case.
var ErrNoSnapshots = errors.New("no snapshots recorded for case")

// fileName is the archive database file inside the data directory.
const fileName = "archive.db"

// Archive wraps the SQLite crawl archive.
type Archive struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive database in dir.
//
// Design decision: We use modernc.org/sqlite (pure Go) rather than a
// cgo driver because:
//  1. The crawler cross-compiles to wherever the operator runs it
//  2. No system sqlite dependency to document or version-match
//  3. Single-writer usage patterns never hit the driver's limits
func Open(dir string) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		filepath.Join(dir, fileName))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}
	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// migrate creates the schema. Statements are idempotent; there is no
// versioned migration machinery for three tables.
func (a *Archive) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS crawl_runs (
			id TEXT PRIMARY KEY,
			case_number TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			status TEXT NOT NULL DEFAULT 'running',
			documents_fetched INTEGER NOT NULL DEFAULT 0,
			documents_skipped INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_crawl_runs_case ON crawl_runs(case_number, started_at)`,
		`CREATE TABLE IF NOT EXISTS case_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES crawl_runs(id),
			case_number TEXT NOT NULL,
			case_guid TEXT NOT NULL,
			status TEXT,
			total_documents INTEGER NOT NULL,
			instance_count INTEGER NOT NULL,
			fingerprints TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_case ON case_snapshots(case_number, created_at)`,
		`CREATE TABLE IF NOT EXISTS documents (
			case_number TEXT NOT NULL,
			doc_guid TEXT NOT NULL,
			case_guid TEXT NOT NULL,
			filename TEXT,
			source_tabs TEXT NOT NULL DEFAULT '[]',
			char_count INTEGER NOT NULL DEFAULT 0,
			requires_review INTEGER NOT NULL DEFAULT 0,
			fetched_at TEXT NOT NULL,
			PRIMARY KEY (case_number, doc_guid)
		)`,
	}
	for _, s := range stmts {
		if _, err := a.db.Exec(s); err != nil {
			return fmt.Errorf("migrate archive schema: %w", err)
		}
	}
	return nil
}

// RunSummary is one crawl run for history listings.
type RunSummary struct {
	ID         string
	CaseNumber string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Fetched    int
	Skipped    int
}

// StartRun records the beginning of a crawl run.
func (a *Archive) StartRun(ctx context.Context, runID, caseNumber string, startedAt time.Time) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO crawl_runs (id, case_number, started_at) VALUES (?, ?, ?)`,
		runID, caseNumber, startedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

// FinishRun records how a crawl run ended.
func (a *Archive) FinishRun(ctx context.Context, runID, status string, fetched, skipped int, finishedAt time.Time) error {
	_, err := a.db.ExecContext(ctx,
		`UPDATE crawl_runs SET finished_at = ?, status = ?, documents_fetched = ?, documents_skipped = ?
		 WHERE id = ?`,
		finishedAt.UTC().Format(time.RFC3339), status, fetched, skipped, runID)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	return nil
}

// SaveSnapshot stores the case structure observed by a run.
func (a *Archive) SaveSnapshot(ctx context.Context, runID string, rec *model.CaseRecord) error {
	fp, err := json.Marshal(rec.Fingerprints)
	if err != nil {
		return fmt.Errorf("encode fingerprints: %w", err)
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO case_snapshots
		 (run_id, case_number, case_guid, status, total_documents, instance_count, fingerprints, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, rec.CaseNumber, rec.CaseGUID, rec.Status,
		rec.TotalDocuments, rec.InstanceCount, string(fp),
		rec.ParsedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save case snapshot: %w", err)
	}
	return nil
}

// UpsertDocument records a fetched document, replacing any earlier row
// for the same identity.
func (a *Archive) UpsertDocument(ctx context.Context, caseNumber string, rec model.DocumentRecord, tabs []model.Tab) error {
	tabsJSON, err := json.Marshal(tabs)
	if err != nil {
		return fmt.Errorf("encode source tabs: %w", err)
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO documents
		 (case_number, doc_guid, case_guid, filename, source_tabs, char_count, requires_review, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (case_number, doc_guid) DO UPDATE SET
		   source_tabs = excluded.source_tabs,
		   char_count = excluded.char_count,
		   requires_review = excluded.requires_review,
		   fetched_at = excluded.fetched_at`,
		caseNumber, rec.DocGUID, rec.CaseGUID, rec.Filename, string(tabsJSON),
		rec.CharCount, boolInt(rec.RequiresManualReview),
		rec.FetchedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// History lists the runs recorded for a case, newest first.
func (a *Archive) History(ctx context.Context, caseNumber string) ([]RunSummary, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, case_number, started_at, COALESCE(finished_at, ''), status,
		        documents_fetched, documents_skipped
		 FROM crawl_runs WHERE case_number = ? ORDER BY started_at DESC`,
		caseNumber)
	if err != nil {
		return nil, fmt.Errorf("query run history: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var started, finished string
		if err := rows.Scan(&r.ID, &r.CaseNumber, &started, &finished, &r.Status, &r.Fetched, &r.Skipped); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		r.StartedAt = parseTimestamp(started)
		r.FinishedAt = parseTimestamp(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Snapshot is the stored case structure of one run.
type Snapshot struct {
	RunID          string
	CaseNumber     string
	CaseGUID       string
	Status         string
	TotalDocuments int
	InstanceCount  int
	Fingerprints   map[string]string
	CreatedAt      time.Time
}

// LatestSnapshots returns up to n most recent snapshots for a case,
// newest first. Returns ErrNoSnapshots when there are none.
func (a *Archive) LatestSnapshots(ctx context.Context, caseNumber string, n int) ([]Snapshot, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT run_id, case_number, case_guid, COALESCE(status, ''),
		        total_documents, instance_count, fingerprints, created_at
		 FROM case_snapshots WHERE case_number = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		caseNumber, n)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		var fp, created string
		if err := rows.Scan(&s.RunID, &s.CaseNumber, &s.CaseGUID, &s.Status,
			&s.TotalDocuments, &s.InstanceCount, &fp, &created); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		if err := json.Unmarshal([]byte(fp), &s.Fingerprints); err != nil {
			s.Fingerprints = map[string]string{}
		}
		s.CreatedAt = parseTimestamp(created)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshots, caseNumber)
	}
	return out, nil
}

// timestampFormats are the layouts tried when reading stored times.
// Rows written by this code are RFC3339; the fallbacks tolerate rows
// written by hand or by sqlite's datetime().
var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp parses a stored timestamp, returning the zero time for
// empty or unparseable values.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
