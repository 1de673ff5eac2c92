package model

import "time"

// CompletionStatus classifies a finished document identity.
type CompletionStatus string

// Completion statuses stored in the progress checkpoint.
const (
	// StatusDone marks a successfully fetched document.
	StatusDone CompletionStatus = "done"

	// StatusSkipped marks a document permanently skipped after exhausting
	// retries. Skipped documents are not retried on resume.
	StatusSkipped CompletionStatus = "skipped"
)

// CompletionEntry records why and when an identity left the pending set.
type CompletionEntry struct {
	Status CompletionStatus `json:"status"`
	Reason string           `json:"reason,omitempty"`
	At     time.Time        `json:"at"`

	// ManualReview marks a done document whose extracted text was too
	// short to trust. Kept in the checkpoint so resumed runs still
	// report the full count.
	ManualReview bool `json:"manualReview,omitempty"`
}

// ProgressState is the durable checkpoint of a crawl and the sole source
// of truth for resume decisions. Entries are monotonic: once an identity
// is recorded it is never removed or downgraded within or across runs.
type ProgressState struct {
	// CaseNumber is the normalized case identifier this state belongs to.
	CaseNumber string `json:"caseNumber"`

	// RunID identifies the crawl run that last touched this state.
	RunID string `json:"runId,omitempty"`

	// Completed maps identity keys (Identity.Key) to completion entries.
	Completed map[string]CompletionEntry `json:"completed"`

	// LastUpdated is the time of the last state-changing event, UTC.
	LastUpdated time.Time `json:"lastUpdated"`

	// PausedReason is set when a crawl stopped on a systemic condition
	// (rate limiting) and cleared on the next successful completion event.
	PausedReason string `json:"pausedReason,omitempty"`
}

// NewProgressState creates an empty checkpoint for a case.
func NewProgressState(caseNumber string) *ProgressState {
	return &ProgressState{
		CaseNumber: caseNumber,
		Completed:  make(map[string]CompletionEntry),
	}
}

// IsComplete reports whether the identity has been fetched or permanently
// skipped.
func (p *ProgressState) IsComplete(id Identity) bool {
	_, ok := p.Completed[id.Key()]
	return ok
}

// MarkDone records a successful fetch. A done mark always wins: it
// upgrades an earlier skip from a previous run (a retried identity that
// finally succeeded) and is never overwritten afterwards.
func (p *ProgressState) MarkDone(id Identity, manualReview bool, at time.Time) {
	p.Completed[id.Key()] = CompletionEntry{Status: StatusDone, ManualReview: manualReview, At: at.UTC()}
	p.PausedReason = ""
	p.LastUpdated = at.UTC()
}

// MarkSkipped records a permanent skip with its reason. It never
// downgrades an existing done entry.
func (p *ProgressState) MarkSkipped(id Identity, reason string, at time.Time) {
	if e, ok := p.Completed[id.Key()]; ok && e.Status == StatusDone {
		return
	}
	p.Completed[id.Key()] = CompletionEntry{Status: StatusSkipped, Reason: reason, At: at.UTC()}
	p.LastUpdated = at.UTC()
}

// Pause records the reason a crawl stopped issuing work.
func (p *ProgressState) Pause(reason string, at time.Time) {
	p.PausedReason = reason
	p.LastUpdated = at.UTC()
}

// DoneCount and SkippedCount summarize the completed set for logs.
func (p *ProgressState) DoneCount() int {
	n := 0
	for _, e := range p.Completed {
		if e.Status == StatusDone {
			n++
		}
	}
	return n
}

// SkippedCount returns the number of permanently skipped identities.
func (p *ProgressState) SkippedCount() int {
	n := 0
	for _, e := range p.Completed {
		if e.Status == StatusSkipped {
			n++
		}
	}
	return n
}

// ManualReviewCount returns the number of done documents flagged for
// manual review.
func (p *ProgressState) ManualReviewCount() int {
	n := 0
	for _, e := range p.Completed {
		if e.Status == StatusDone && e.ManualReview {
			n++
		}
	}
	return n
}

// Merge folds another state's completed entries into this one, keeping
// the monotonic guarantee (done wins over skipped, nothing is removed).
// Used when a resume finds an existing checkpoint on disk.
func (p *ProgressState) Merge(other *ProgressState) {
	if other == nil {
		return
	}
	for k, e := range other.Completed {
		cur, ok := p.Completed[k]
		if !ok || (cur.Status == StatusSkipped && e.Status == StatusDone) {
			p.Completed[k] = e
		}
	}
	if other.LastUpdated.After(p.LastUpdated) {
		p.LastUpdated = other.LastUpdated
	}
	if p.PausedReason == "" {
		p.PausedReason = other.PausedReason
	}
}
