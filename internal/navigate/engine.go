// Package navigate drives the archive UI: searching for a case, opening
// its record card, and walking the document tabs.
//
// All navigation happens on the session's primary page so every request
// rides the challenge token. Selectors live in the tab adapters; the
// engine itself only knows the search form and the card header.
package navigate

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/kadcrawl/kadcrawl/internal/browser"
	"github.com/kadcrawl/kadcrawl/internal/config"
	"github.com/kadcrawl/kadcrawl/internal/model"
)

// Engine selectors. Everything below the card header belongs to the
// adapters.
const (
	searchInputSelector = "#sug-cases"
	suggestListSelector = "#b-suggest"
	caseHeaderSelector  = "div.b-case-header-desc"
	promoCloseSelector  = "a.js-promo_notification-popup-close"
)

// TabResult is everything one tab traversal produced.
type TabResult struct {
	Tab model.Tab

	// Refs are the document references in on-page order.
	Refs []model.DocumentReference

	// Instances is populated by the chronology (cards) tab only.
	Instances []model.InstanceRecord

	// SkippedRows counts rows dropped because their structure did not
	// match expectations.
	SkippedRows int
}

// Engine walks the archive UI for one case.
type Engine struct {
	session *browser.Session
	cfg     *config.Config
	logger  *slog.Logger

	// pageDelay is called between pagination steps; the orchestrator
	// injects pacing through it.
	pageDelay func(ctx context.Context) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithPageDelay sets the pacing hook invoked between pagination clicks.
func WithPageDelay(delay func(ctx context.Context) error) Option {
	return func(e *Engine) {
		if delay != nil {
			e.pageDelay = delay
		}
	}
}

// NewEngine creates an Engine on top of an acquired session.
func NewEngine(session *browser.Session, cfg *config.Config, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		session:   session,
		cfg:       cfg,
		logger:    logger,
		pageDelay: func(context.Context) error { return nil },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// page returns the primary page bounded by the navigation timeout.
func (e *Engine) page(ctx context.Context) *rod.Page {
	return e.session.Page().Context(ctx).Timeout(e.cfg.NavigationTimeout)
}

// suggestPollInterval spaces dropdown re-reads while waiting for the
// suggest service to answer.
const suggestPollInterval = 250 * time.Millisecond

// Search types the case number into the suggest box and resolves the
// record-card URL.
//
// Resolution policy: a candidate matches when its embedded case number,
// normalized, equals the target. Exactly one match wins; zero
// candidates is ErrNotFound; anything else is ErrAmbiguousResult. The
// crawler never guesses between near matches.
func (e *Engine) Search(ctx context.Context, caseNumber string) (string, error) {
	page := e.page(ctx)

	input, err := page.Element(searchInputSelector)
	if err != nil {
		return "", fmt.Errorf("find search input: %w", err)
	}
	if err := input.Input(caseNumber); err != nil {
		return "", fmt.Errorf("type case number: %w", err)
	}

	pollCtx, cancel := context.WithTimeout(ctx, e.cfg.NavigationTimeout)
	defer cancel()
	candidates, err := e.suggestCandidates(pollCtx, page)
	if err != nil {
		return "", err
	}

	match, err := resolveSuggestion(candidates, caseNumber)
	if err != nil {
		return "", err
	}
	e.session.Touch()
	return cardURL(e.cfg.BaseURL, match)
}

// suggestCandidates polls the dropdown until it has candidates or the
// context expires. The dropdown container exists before the suggest
// service answers, so a single read right after typing would race it.
func (e *Engine) suggestCandidates(ctx context.Context, page *rod.Page) ([]suggestion, error) {
	dropdown, err := page.Element(suggestListSelector)
	if err != nil {
		return nil, fmt.Errorf("find suggest dropdown: %w", err)
	}
	for {
		fragment, err := dropdown.HTML()
		if err != nil {
			return nil, fmt.Errorf("read suggestions: %w", err)
		}
		if candidates := parseSuggestions(fragment); len(candidates) > 0 {
			return candidates, nil
		}
		select {
		case <-ctx.Done():
			// An empty dropdown at the deadline is a genuine no-results
			// answer; resolution turns it into ErrNotFound.
			return nil, nil
		case <-time.After(suggestPollInterval):
		}
	}
}

// resolveSuggestion applies the match policy to suggest candidates.
func resolveSuggestion(candidates []suggestion, caseNumber string) (suggestion, error) {
	if len(candidates) == 0 {
		return suggestion{}, fmt.Errorf("%w: %s", ErrNotFound, caseNumber)
	}
	var matches []suggestion
	for _, c := range candidates {
		if extractCaseNumber(c.Text) == caseNumber {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return suggestion{}, fmt.Errorf("%w: %d candidates, none matching %s exactly",
			ErrAmbiguousResult, len(candidates), caseNumber)
	default:
		return suggestion{}, fmt.Errorf("%w: %d candidates match %s",
			ErrAmbiguousResult, len(matches), caseNumber)
	}
}

// zeroGUID is the placeholder the suggest service puts on entries
// without a record card.
const zeroGUID = "00000000-0000-0000-0000-000000000000"

// cardURL resolves a suggestion to its record-card URL. The anchor's
// id attribute carries the case GUID and is the primary route; the
// href is the fallback for markup without one.
func cardURL(baseURL string, s suggestion) (string, error) {
	if s.GUID != "" && s.GUID != zeroGUID {
		return resolveURL(baseURL, "/Card/"+s.GUID)
	}
	if s.Href == "" {
		return "", fmt.Errorf("%w: suggestion carries neither GUID nor link", ErrParseMismatch)
	}
	return resolveURL(baseURL, s.Href)
}

// resolveURL makes a suggest href absolute against the archive base.
func resolveURL(baseURL, href string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse suggestion href: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}

// OpenCard navigates to the record card and parses its header.
func (e *Engine) OpenCard(ctx context.Context, caseNumber, cardURL string) (*model.CaseRecord, error) {
	page := e.page(ctx)

	if err := page.Navigate(cardURL); err != nil {
		return nil, fmt.Errorf("navigate record card: %w", err)
	}
	header, err := page.Element(caseHeaderSelector)
	if err != nil {
		return nil, fmt.Errorf("%w: record card header missing", ErrParseMismatch)
	}
	e.dismissPromo(page)

	fragment, err := header.HTML()
	if err != nil {
		return nil, fmt.Errorf("read record card header: %w", err)
	}

	e.session.Touch()
	return &model.CaseRecord{
		CaseNumber:   caseNumber,
		CaseGUID:     caseGUIDFromURL(cardURL),
		Status:       parseCaseStatus(fragment),
		URL:          cardURL,
		ParsedAt:     time.Now().UTC(),
		Fingerprints: make(map[string]string),
	}, nil
}

// dismissPromo closes the promotional popup when present. The popup
// intercepts clicks on the tab buttons, so it has to go first; its
// absence is the normal case and not an error.
func (e *Engine) dismissPromo(page *rod.Page) {
	short := page.Timeout(2 * time.Second)
	el, err := short.Element(promoCloseSelector)
	if err != nil {
		return
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		e.logger.Debug("promo popup close failed", slog.String("error", err.Error()))
	}
}

// Traverse walks one tab and collects its document references.
func (e *Engine) Traverse(ctx context.Context, tab model.Tab) (*TabResult, error) {
	var a tabAdapter
	switch tab {
	case model.TabActs:
		a = actsAdapter{}
	case model.TabCards:
		a = cardsAdapter{}
	case model.TabEFile:
		a = efileAdapter{}
	default:
		return nil, fmt.Errorf("%w: unknown tab %q", ErrParseMismatch, tab)
	}

	res, err := a.collect(ctx, e)
	if err != nil {
		return nil, err
	}
	e.session.Touch()
	e.logger.Info("tab traversed",
		slog.String("tab", string(tab)),
		slog.Int("documents", len(res.Refs)),
		slog.Int("instances", len(res.Instances)),
		slog.Int("skippedRows", res.SkippedRows))
	return res, nil
}

// PageHTML returns the primary page's current HTML, used for
// rate-limit banner checks after navigation steps.
func (e *Engine) PageHTML(ctx context.Context) (string, error) {
	return e.page(ctx).HTML()
}
