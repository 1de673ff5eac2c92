// Package browser owns the challenge-bearing browser session.
//
// The archive front-ends every page behind a WASM fingerprint challenge:
// a first visit gets an interstitial that computes a token and redirects
// to the real page. The token lives inside the browser context, so the
// crawler never sees or stores it; it only distinguishes a context that
// has passed the challenge (warm) from one that has not (cold) or whose
// token authority has decayed (stale), and re-runs the handshake through
// real page loads when needed.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/kadcrawl/kadcrawl/internal/config"
)

// State is the challenge state of the session.
type State int

const (
	// StateCold means the context has not passed the challenge.
	StateCold State = iota

	// StateWarm means the context holds a working challenge token.
	StateWarm

	// StateStale means the token likely decayed (long idle, repeated
	// fetch failures) and the session must be rewarmed before use.
	StateStale
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateWarm:
		return "warm"
	case StateStale:
		return "stale"
	default:
		return "cold"
	}
}

// searchFormReadySelector is the element whose presence marks the end of
// the challenge handshake: the interstitial never renders it, the real
// search page always does.
const searchFormReadySelector = "#sug-cases"

// Session wraps a launched browser whose primary page carries the
// challenge token. All navigation happens on the primary page; document
// fetches happen on short-lived pages that share the token via the
// browser context.
type Session struct {
	cfg    *config.Config
	logger *slog.Logger

	mu           sync.Mutex
	launcher     *launcher.Launcher
	browser      *rod.Browser
	page         *rod.Page
	state        State
	lastActivity time.Time
	closed       bool
}

// NewSession creates an unstarted session.
func NewSession(cfg *config.Config, logger *slog.Logger) *Session {
	return &Session{cfg: cfg, logger: logger, state: StateCold}
}

// Start launches the browser and prepares the primary page. The session
// is still cold afterwards; Acquire runs the handshake.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	l := launcher.New().Headless(s.cfg.Headless)
	if s.cfg.BrowserBin != "" {
		l = l.Bin(s.cfg.BrowserBin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return fmt.Errorf("connect browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		l.Cleanup()
		return fmt.Errorf("create primary page: %w", err)
	}
	if err := s.applyFingerprint(page); err != nil {
		_ = b.Close()
		l.Cleanup()
		return fmt.Errorf("apply fingerprint: %w", err)
	}

	s.launcher = l
	s.browser = b
	s.page = page
	s.state = StateCold
	s.logger.Debug("browser started", slog.Bool("headless", s.cfg.Headless))
	return nil
}

// applyFingerprint shapes the page environment to match the configured
// locale and timezone. The challenge scores consistency, so these are
// set before the first navigation, never changed afterwards.
func (s *Session) applyFingerprint(page *rod.Page) error {
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.ViewportWidth,
		Height:            s.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return err
	}
	if err := (proto.EmulationSetTimezoneOverride{TimezoneID: s.cfg.Timezone}).Call(page); err != nil {
		return err
	}
	return proto.EmulationSetLocaleOverride{Locale: s.cfg.Locale}.Call(page)
}

// Acquire runs the challenge handshake: navigate the primary page to the
// archive entry point and wait for the post-redirect search page to
// render. Each attempt is bounded by the challenge timeout; the whole
// acquisition retries up to the configured budget before failing with
// ErrChallengeFailed.
func (s *Session) Acquire(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	page := s.page
	s.mu.Unlock()

	attempts := s.cfg.MaxChallengeRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.logger.Info("acquiring challenge session",
			slog.Int("attempt", attempt), slog.Int("attempts", attempts))

		if err := s.handshake(ctx, page); err != nil {
			lastErr = err
			s.logger.Warn("challenge attempt failed", slog.String("error", err.Error()))
			continue
		}

		s.mu.Lock()
		s.state = StateWarm
		s.lastActivity = time.Now()
		s.mu.Unlock()
		s.logger.Info("challenge session acquired")
		return nil
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrChallengeFailed, attempts, lastErr)
}

// handshake performs one bounded navigate-and-wait cycle.
func (s *Session) handshake(ctx context.Context, page *rod.Page) error {
	hctx, cancel := context.WithTimeout(ctx, s.cfg.ChallengeTimeout)
	defer cancel()

	p := page.Context(hctx)
	if err := p.Navigate(s.cfg.BaseURL); err != nil {
		return fmt.Errorf("navigate entry point: %w", err)
	}
	// The interstitial redirects on its own once the token is computed;
	// waiting for the search form covers both the redirect and the render.
	if _, err := p.Element(searchFormReadySelector); err != nil {
		return fmt.Errorf("wait for search form: %w", err)
	}
	return nil
}

// Page returns the primary page. Navigation code uses it directly; the
// session only tracks challenge state around it.
func (s *Session) Page() *rod.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// State returns the current challenge state, accounting for idle decay:
// a warm session that sat idle past the threshold reports stale.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateWarm && time.Since(s.lastActivity) > s.cfg.RewarmIdleThreshold {
		s.state = StateStale
	}
	return s.state
}

// Touch records activity, resetting the idle clock.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// MarkStale forces the session into the stale state. Called after
// repeated fetch failures that suggest token decay.
func (s *Session) MarkStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateWarm {
		s.state = StateStale
	}
}

// Rewarm refreshes a stale session: re-run the handshake on the primary
// page, then issue a disposable warm-up fetch whose outcome is
// deliberately ignored, and let the context settle. The warm-up absorbs
// the empirically observed failures of the first fetch after a cold or
// stale period so real document fetches do not pay for them.
func (s *Session) Rewarm(ctx context.Context, warmupURL string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	page := s.page
	s.mu.Unlock()

	s.logger.Info("rewarming session")
	if err := s.handshake(ctx, page); err != nil {
		return fmt.Errorf("%w: rewarm: %v", ErrChallengeFailed, err)
	}

	if warmupURL != "" {
		wctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
		if _, err := s.CaptureAttachment(wctx, warmupURL); err != nil {
			// Expected to fail on the first post-handshake fetch.
			s.logger.Debug("warm-up fetch discarded", slog.String("error", err.Error()))
		}
		cancel()
	}

	if err := sleepCtx(ctx, s.cfg.RewarmSettle); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = StateWarm
	s.lastActivity = time.Now()
	s.mu.Unlock()
	s.logger.Info("session rewarmed")
	return nil
}

// Close shuts down the browser and releases launcher resources.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.state = StateCold

	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
	return err
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
