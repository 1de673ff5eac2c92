// Package crawl orchestrates a full case crawl: session acquisition,
// search, tab traversal, and the paced document fetch loop.
//
// Concurrency model: tab traversal is strictly sequential on the
// primary page. Document fetches run on short-lived pages with bounded
// concurrency, but every state mutation (checkpoint commits, output
// writes, archive rows) happens on the single dispatcher goroutine, so
// the checkpoint never needs locking and is always internally
// consistent.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/kadcrawl/kadcrawl/internal/browser"
	"github.com/kadcrawl/kadcrawl/internal/config"
	"github.com/kadcrawl/kadcrawl/internal/database"
	"github.com/kadcrawl/kadcrawl/internal/dedup"
	"github.com/kadcrawl/kadcrawl/internal/model"
	"github.com/kadcrawl/kadcrawl/internal/navigate"
	"github.com/kadcrawl/kadcrawl/internal/output"
	"github.com/kadcrawl/kadcrawl/internal/progress"
	"github.com/kadcrawl/kadcrawl/internal/ratelimit"
)

// challengeSession is the part of the browser session the orchestrator
// depends on. Narrowed to an interface so the fetch loop is testable
// without a browser.
type challengeSession interface {
	Start(ctx context.Context) error
	Acquire(ctx context.Context) error
	Rewarm(ctx context.Context, warmupURL string) error
	State() browser.State
	MarkStale()
	CaptureAttachment(ctx context.Context, url string) ([]byte, error)
	Close() error
}

// navigator is the part of the navigation engine the orchestrator uses.
type navigator interface {
	Search(ctx context.Context, caseNumber string) (string, error)
	OpenCard(ctx context.Context, caseNumber, cardURL string) (*model.CaseRecord, error)
	Traverse(ctx context.Context, tab model.Tab) (*navigate.TabResult, error)
	PageHTML(ctx context.Context) (string, error)
}

// Orchestrator runs one case crawl end to end.
type Orchestrator struct {
	cfg     *config.Config
	logger  *slog.Logger
	session challengeSession
	nav     navigator
	monitor *ratelimit.Monitor
	writer  *output.Writer
	store   *progress.Store
	index   *dedup.Index

	// archive is optional; nil disables history recording.
	archive *database.Archive

	// validate and extract are the document pipeline, injectable for
	// tests.
	validate func([]byte) error
	extract  func([]byte) (string, error)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithArchive enables crawl-history recording.
func WithArchive(a *database.Archive) Option {
	return func(o *Orchestrator) { o.archive = a }
}

// WithDocumentPipeline overrides PDF validation and extraction.
func WithDocumentPipeline(validate func([]byte) error, extract func([]byte) (string, error)) Option {
	return func(o *Orchestrator) {
		if validate != nil {
			o.validate = validate
		}
		if extract != nil {
			o.extract = extract
		}
	}
}

// NewOrchestrator wires an orchestrator from its collaborators.
func NewOrchestrator(cfg *config.Config, logger *slog.Logger, session challengeSession,
	nav navigator, writer *output.Writer, store *progress.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		logger:   logger,
		session:  session,
		nav:      nav,
		monitor:  ratelimit.NewMonitor(cfg.RateLimitPhrases),
		writer:   writer,
		store:    store,
		index:    dedup.NewIndex(),
		validate: defaultValidate,
		extract:  defaultExtract,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run crawls one case. The returned error carries the failure class for
// exit-code mapping; a nil return means every discovered document was
// fetched or had been fetched by a previous run.
func (o *Orchestrator) Run(ctx context.Context, rawCaseNumber string) error {
	caseNumber, err := model.ParseCaseNumber(rawCaseNumber)
	if err != nil {
		return fmt.Errorf("%w: %q", err, rawCaseNumber)
	}
	runID := uuid.NewString()
	logger := o.logger.With(slog.String("case", caseNumber), slog.String("run", runID))

	state, err := o.loadState(caseNumber, runID, logger)
	if err != nil {
		return err
	}

	if o.archive != nil {
		if err := o.archive.StartRun(ctx, runID, caseNumber, time.Now()); err != nil {
			logger.Warn("archive run start failed", slog.String("error", err.Error()))
		}
	}

	runErr := o.run(ctx, caseNumber, state, logger)
	o.finishArchiveRun(runID, state, runErr, logger)
	return runErr
}

// loadState loads or creates the progress checkpoint and seeds the
// dedup index with previously completed identities.
func (o *Orchestrator) loadState(caseNumber, runID string, logger *slog.Logger) (*model.ProgressState, error) {
	state := model.NewProgressState(caseNumber)
	state.RunID = runID

	if o.cfg.Resume {
		prev, err := o.store.Load()
		if err != nil {
			return nil, fmt.Errorf("load checkpoint: %w", err)
		}
		if prev != nil {
			if prev.CaseNumber != caseNumber {
				return nil, fmt.Errorf("checkpoint belongs to case %s, not %s", prev.CaseNumber, caseNumber)
			}
			state.Merge(prev)
			logger.Info("resuming from checkpoint",
				slog.Int("done", state.DoneCount()),
				slog.Int("skipped", state.SkippedCount()),
				slog.String("pausedReason", prev.PausedReason))
		}
	}
	for key := range state.Completed {
		o.index.Seed(key)
	}
	return state, nil
}

// run is the crawl body once state is loaded.
func (o *Orchestrator) run(ctx context.Context, caseNumber string, state *model.ProgressState, logger *slog.Logger) error {
	if err := o.session.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := o.session.Close(); err != nil {
			logger.Warn("browser close failed", slog.String("error", err.Error()))
		}
	}()

	if err := o.session.Acquire(ctx); err != nil {
		return err
	}

	cardURL, err := o.nav.Search(ctx, caseNumber)
	if err != nil {
		if rlErr := o.checkPageRateLimit(ctx, state); rlErr != nil {
			return rlErr
		}
		return err
	}
	logger.Info("record card resolved", slog.String("url", cardURL))

	caseRec, err := o.nav.OpenCard(ctx, caseNumber, cardURL)
	if err != nil {
		return err
	}
	if rlErr := o.checkPageRateLimit(ctx, state); rlErr != nil {
		return rlErr
	}

	refs, instances, err := o.traverseTabs(ctx, state, logger)
	if err != nil {
		return err
	}

	o.fingerprint(caseRec, instances, perTabFirst(refs))
	caseRec.TotalDocuments = o.index.Len()
	caseRec.InstanceCount = len(instances)

	if err := o.writeStructure(caseRec, instances, refs); err != nil {
		return err
	}
	if o.archive != nil {
		if err := o.archive.SaveSnapshot(ctx, state.RunID, caseRec); err != nil {
			logger.Warn("archive snapshot failed", slog.String("error", err.Error()))
		}
	}

	fetchErr := o.fetchAll(ctx, state, dedupedPending(refs, state), logger)

	if err := o.writeSummary(caseRec, instances, refs, state); err != nil {
		logger.Warn("summary write failed", slog.String("error", err.Error()))
	}
	if fetchErr != nil {
		return fetchErr
	}
	logger.Info("crawl complete",
		slog.Int("documents", state.DoneCount()),
		slog.Int("skipped", state.SkippedCount()))
	return nil
}

// traverseTabs walks every source tab. A structure mismatch on one tab
// is logged and the tab skipped; the other tabs still run.
func (o *Orchestrator) traverseTabs(ctx context.Context, state *model.ProgressState, logger *slog.Logger) (
	map[model.Tab][]model.DocumentReference, []model.InstanceRecord, error) {

	refs := make(map[model.Tab][]model.DocumentReference, len(model.Tabs()))
	var instances []model.InstanceRecord

	for _, tab := range model.Tabs() {
		res, err := o.nav.Traverse(ctx, tab)
		if err != nil {
			if errors.Is(err, navigate.ErrParseMismatch) {
				logger.Warn("tab structure mismatch, skipping tab",
					slog.String("tab", string(tab)), slog.String("error", err.Error()))
				continue
			}
			return nil, nil, err
		}
		refs[tab] = res.Refs
		if tab == model.TabCards {
			instances = res.Instances
		}
		for _, ref := range res.Refs {
			o.index.Admit(ref)
		}
		if rlErr := o.checkPageRateLimit(ctx, state); rlErr != nil {
			return nil, nil, rlErr
		}
	}
	return refs, instances, nil
}

// fingerprint records the first document seen per instance and per tab.
// Comparing these across runs detects case growth cheaply.
func (o *Orchestrator) fingerprint(rec *model.CaseRecord, instances []model.InstanceRecord, firstPerTab map[model.Tab]string) {
	if rec.Fingerprints == nil {
		rec.Fingerprints = make(map[string]string)
	}
	for _, inst := range instances {
		if len(inst.Documents) > 0 {
			rec.Fingerprints[inst.InstanceID] = inst.Documents[0]
		}
	}
	for tab, guid := range firstPerTab {
		rec.Fingerprints[string(tab)] = guid
	}
}

// perTabFirst maps each tab to its first document GUID.
func perTabFirst(refs map[model.Tab][]model.DocumentReference) map[model.Tab]string {
	out := make(map[model.Tab]string, len(refs))
	for tab, list := range refs {
		if len(list) > 0 {
			out[tab] = list[0].DocGUID
		}
	}
	return out
}

// dedupedPending returns the references to fetch: one per identity, in
// discovery order, excluding identities already completed.
func dedupedPending(refs map[model.Tab][]model.DocumentReference, state *model.ProgressState) []model.DocumentReference {
	var pending []model.DocumentReference
	seen := make(map[string]struct{})
	for _, tab := range model.Tabs() {
		for _, ref := range refs[tab] {
			key := ref.Identity().Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if state.IsComplete(ref.Identity()) {
				continue
			}
			pending = append(pending, ref)
		}
	}
	return pending
}

// writeStructure persists everything known before fetching starts, so
// an interrupted crawl still leaves the case structure on disk.
func (o *Orchestrator) writeStructure(rec *model.CaseRecord, instances []model.InstanceRecord,
	refs map[model.Tab][]model.DocumentReference) error {
	if err := o.writer.WriteCase(rec); err != nil {
		return err
	}
	for _, tab := range model.Tabs() {
		if err := o.writer.WriteTabList(tab, refs[tab]); err != nil {
			return err
		}
	}
	for _, inst := range instances {
		if err := o.writer.WriteInstance(inst); err != nil {
			return err
		}
	}
	return nil
}

// writeSummary renders the README from the final state.
func (o *Orchestrator) writeSummary(rec *model.CaseRecord, instances []model.InstanceRecord,
	refs map[model.Tab][]model.DocumentReference, state *model.ProgressState) error {
	perTab := make(map[model.Tab]int, len(refs))
	for tab, list := range refs {
		perTab[tab] = len(list)
	}
	return o.writer.WriteReadme(&output.Summary{
		Case:         rec,
		Instances:    instances,
		PerTab:       perTab,
		Fetched:      state.DoneCount(),
		Skipped:      state.SkippedCount(),
		ManualReview: state.ManualReviewCount(),
	})
}

// checkPageRateLimit inspects the primary page for throttling banners.
// On detection it pauses the crawl: the checkpoint records the reason
// and the run stops with ErrRateLimited so the operator can resume
// later.
func (o *Orchestrator) checkPageRateLimit(ctx context.Context, state *model.ProgressState) error {
	pageHTML, err := o.nav.PageHTML(ctx)
	if err != nil {
		return nil
	}
	if verdict, phrase := o.monitor.Check(pageHTML); verdict == ratelimit.RateLimited {
		return o.pause(state, phrase)
	}
	return nil
}

// pause checkpoints the rate-limited condition and surfaces it.
func (o *Orchestrator) pause(state *model.ProgressState, phrase string) error {
	state.Pause("rate limited: "+phrase, time.Now())
	if err := o.store.Commit(state); err != nil {
		o.logger.Error("checkpoint commit during pause failed", slog.String("error", err.Error()))
	}
	return fmt.Errorf("%w (%s)", ratelimit.ErrRateLimited, phrase)
}

// finishArchiveRun records the run outcome when archiving is enabled.
func (o *Orchestrator) finishArchiveRun(runID string, state *model.ProgressState, runErr error, logger *slog.Logger) {
	if o.archive == nil || state == nil {
		return
	}
	status := "completed"
	switch {
	case errors.Is(runErr, ratelimit.ErrRateLimited):
		status = "paused"
	case runErr != nil:
		status = "failed"
	}
	// The run context may already be canceled; archiving still happens.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.archive.FinishRun(ctx, runID, status, state.DoneCount(), state.SkippedCount(), time.Now()); err != nil {
		logger.Warn("archive run finish failed", slog.String("error", err.Error()))
	}
}

// PageDelayFunc returns the pacing hook the navigation engine calls
// between pagination clicks.
func PageDelayFunc(cfg *config.Config) func(context.Context) error {
	return func(ctx context.Context) error {
		return sleepCtx(ctx, jittered(cfg.PageDelay, cfg.PageDelayJitter))
	}
}

// jittered returns d plus a uniform random jitter in [0, j).
func jittered(d, j time.Duration) time.Duration {
	if j <= 0 {
		return d
	}
	return d + rand.N(j)
}

// sleepCtx sleeps for d or until the context is canceled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
