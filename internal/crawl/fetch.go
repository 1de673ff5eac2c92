package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kadcrawl/kadcrawl/internal/browser"
	"github.com/kadcrawl/kadcrawl/internal/model"
	"github.com/kadcrawl/kadcrawl/internal/pdftext"
	"github.com/kadcrawl/kadcrawl/internal/ratelimit"
)

// defaultValidate and defaultExtract are the production document
// pipeline; tests substitute them through WithDocumentPipeline.
func defaultValidate(data []byte) error { return pdftext.Validate(data) }

func defaultExtract(data []byte) (string, error) { return pdftext.Extract(data) }

// fetchResult is one document's outcome, delivered to the dispatcher.
type fetchResult struct {
	ref model.DocumentReference
	rec model.DocumentRecord
	err error
}

// fetchAll runs the paced fetch loop over pending references.
//
// The dispatcher goroutine owns all state: it paces dispatches, decides
// rewarms, and commits every result. Capture goroutines only talk to
// the browser. On cancellation or a systemic failure the dispatcher
// stops handing out work and drains what is already in flight, so every
// completed fetch still reaches the checkpoint.
func (o *Orchestrator) fetchAll(ctx context.Context, state *model.ProgressState,
	pending []model.DocumentReference, logger *slog.Logger) error {

	if len(pending) == 0 {
		logger.Info("nothing to fetch")
		return o.store.Commit(state)
	}
	logger.Info("fetch loop starting",
		slog.Int("pending", len(pending)),
		slog.Int("concurrency", o.cfg.FetchConcurrency))

	fctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(o.cfg.FetchConcurrency))
	results := make(chan fetchResult, o.cfg.FetchConcurrency)

	var failStreak atomic.Int64
	inFlight := 0
	dispatched := 0
	sinceBreak := 0
	warmupURL := pending[0].URL

	var systemic error
	for dispatched < len(pending) || inFlight > 0 {
		// Drain-first: results are committed as soon as they arrive so a
		// crash loses at most the in-flight fetches.
		if inFlight > 0 {
			select {
			case res := <-results:
				inFlight--
				if err := o.commitResult(fctx, state, res, &failStreak, logger); err != nil {
					systemic = err
					cancel()
				}
				continue
			default:
			}
		}

		if systemic != nil || fctx.Err() != nil {
			if inFlight > 0 {
				res := <-results
				inFlight--
				cres := o.commitResult(context.Background(), state, res, &failStreak, logger)
				if systemic == nil && cres != nil {
					systemic = cres
				}
				continue
			}
			break
		}

		if dispatched >= len(pending) {
			res := <-results
			inFlight--
			if err := o.commitResult(fctx, state, res, &failStreak, logger); err != nil {
				systemic = err
				cancel()
			}
			continue
		}

		if err := o.maybeRewarm(fctx, sem, &failStreak, warmupURL, logger); err != nil {
			systemic = err
			cancel()
			continue
		}
		if err := o.pace(fctx, dispatched, &sinceBreak, logger); err != nil {
			continue
		}

		if err := sem.Acquire(fctx, 1); err != nil {
			continue
		}
		ref := pending[dispatched]
		dispatched++
		inFlight++
		go func() {
			defer sem.Release(1)
			results <- o.fetchOne(fctx, ref)
		}()
	}

	if systemic != nil {
		return systemic
	}
	if err := ctx.Err(); err != nil {
		state.Pause("canceled", time.Now())
		if cErr := o.store.Commit(state); cErr != nil {
			logger.Error("checkpoint commit on cancel failed", slog.String("error", cErr.Error()))
		}
		return err
	}
	return o.store.Commit(state)
}

// commitResult applies one fetch outcome to the checkpoint and output.
// A rate-limit detection is returned as the systemic error; everything
// else resolves to done or permanently skipped.
func (o *Orchestrator) commitResult(ctx context.Context, state *model.ProgressState,
	res fetchResult, failStreak *atomic.Int64, logger *slog.Logger) error {

	id := res.ref.Identity()
	switch {
	case res.err == nil:
		failStreak.Store(0)
		if err := o.writer.WriteDocument(res.rec); err != nil {
			return fmt.Errorf("write document: %w", err)
		}
		state.MarkDone(id, res.rec.RequiresManualReview, time.Now())
		if o.archive != nil {
			if err := o.archive.UpsertDocument(ctx, state.CaseNumber, res.rec, o.index.SourceTabs(id.Key())); err != nil {
				logger.Warn("archive document failed", slog.String("error", err.Error()))
			}
		}
		logger.Info("document fetched",
			slog.String("docGuid", res.ref.DocGUID),
			slog.Int("chars", res.rec.CharCount),
			slog.Bool("manualReview", res.rec.RequiresManualReview))

	case errors.Is(res.err, ratelimit.ErrRateLimited):
		return o.pause(state, res.err.Error())

	case errors.Is(res.err, context.Canceled):
		// Not an outcome; the identity stays pending for the next run.
		return nil

	default:
		failStreak.Add(1)
		state.MarkSkipped(id, res.err.Error(), time.Now())
		logger.Warn("document permanently skipped",
			slog.String("docGuid", res.ref.DocGUID),
			slog.String("reason", res.err.Error()))
	}

	if err := o.store.Commit(state); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

// maybeRewarm quiesces the fetch pool and rewarms the session when the
// failure streak or idle decay says the token is gone. Acquiring the
// full semaphore weight waits for in-flight captures without racing
// them against the handshake.
func (o *Orchestrator) maybeRewarm(ctx context.Context, sem *semaphore.Weighted,
	failStreak *atomic.Int64, warmupURL string, logger *slog.Logger) error {

	streak := failStreak.Load()
	if streak < int64(o.cfg.ConsecutiveFailureLimit) && o.session.State() != browser.StateStale {
		return nil
	}
	if streak >= int64(o.cfg.ConsecutiveFailureLimit) {
		o.session.MarkStale()
	}

	w := int64(o.cfg.FetchConcurrency)
	if err := sem.Acquire(ctx, w); err != nil {
		return nil
	}
	defer sem.Release(w)

	logger.Info("session rewarm triggered", slog.Int64("failStreak", streak))
	if err := o.session.Rewarm(ctx, warmupURL); err != nil {
		return err
	}
	failStreak.Store(0)
	return nil
}

// pace applies the document delay and the periodic longer break.
func (o *Orchestrator) pace(ctx context.Context, dispatched int, sinceBreak *int, logger *slog.Logger) error {
	if dispatched == 0 {
		return nil
	}
	*sinceBreak++
	if o.cfg.BreakEvery > 0 && *sinceBreak >= o.cfg.BreakEvery {
		*sinceBreak = 0
		d := jittered(o.cfg.BreakDelay, o.cfg.BreakDelayJitter)
		logger.Info("taking a break", slog.Duration("duration", d))
		return sleepCtx(ctx, d)
	}
	return sleepCtx(ctx, jittered(o.cfg.DocDelay, o.cfg.DocDelayJitter))
}

// fetchOne captures, validates, and extracts a single document, with
// per-document retries. Retryable failures are capture timeouts, empty
// bodies, and non-PDF responses; a non-PDF response that carries a
// throttling banner escalates to ErrRateLimited instead.
func (o *Orchestrator) fetchOne(ctx context.Context, ref model.DocumentReference) fetchResult {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxFetchRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fetchResult{ref: ref, err: err}
		}
		if attempt > 1 {
			// Linear backoff between attempts; the pacing layer already
			// spaces documents, this only spaces retries.
			if err := sleepCtx(ctx, time.Duration(attempt-1)*2*time.Second); err != nil {
				return fetchResult{ref: ref, err: err}
			}
		}

		body, err := o.session.CaptureAttachment(ctx, ref.URL)
		if err != nil {
			if errors.Is(err, browser.ErrCaptureTimeout) || errors.Is(err, browser.ErrCaptureEmpty) {
				lastErr = err
				continue
			}
			return fetchResult{ref: ref, err: err}
		}

		if err := o.validate(body); err != nil {
			if errors.Is(err, pdftext.ErrNotPDF) {
				if verdict, phrase := o.monitor.Check(string(body)); verdict == ratelimit.RateLimited {
					return fetchResult{ref: ref, err: fmt.Errorf("%w (%s)", ratelimit.ErrRateLimited, phrase)}
				}
				lastErr = err
				continue
			}
			lastErr = err
			continue
		}

		text, err := o.extract(body)
		if err != nil {
			// A valid PDF with a broken text layer is still a successful
			// fetch; it just needs human eyes.
			text = ""
		}
		rec := model.NewDocumentRecord(ref, text, o.cfg.MinTextLength, time.Now())
		return fetchResult{ref: ref, rec: rec}
	}
	return fetchResult{ref: ref, err: fmt.Errorf("retries exhausted: %w", lastErr)}
}
