package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// The timing defaults are deliberately conservative: the archive's
// anti-bot layer throttles aggressive clients, so the crawler favors
// "slow and careful" over throughput.
const (
	// DefaultBaseURL is the archive entry point where the challenge
	// handshake takes place.
	DefaultBaseURL = "https://kad.arbitr.ru/"

	// DefaultChallengeTimeout bounds the wait for the challenge handshake
	// to complete, observed as arrival at the post-redirect search page.
	// The WASM fingerprint computation typically takes a few seconds; a
	// minute covers slow machines without hanging forever.
	DefaultChallengeTimeout = 60 * time.Second

	// DefaultNavigationTimeout bounds every in-page navigation and
	// element wait. There are no unbounded waits anywhere in the crawl.
	DefaultNavigationTimeout = 30 * time.Second

	// DefaultFetchTimeout bounds a single attachment capture attempt,
	// from navigation start to the matching response body arriving.
	DefaultFetchTimeout = 60 * time.Second

	// DefaultRewarmIdleThreshold is how long the primary context may sit
	// idle (a pacing break, a backoff) before it is considered stale and
	// must be rewarmed before real fetches resume.
	DefaultRewarmIdleThreshold = 40 * time.Second

	// DefaultRewarmSettle is the pause after the disposable warm-up fetch
	// before the session is declared warm again. Empirically the first
	// real fetches after a cold context fail; the settle absorbs that.
	DefaultRewarmSettle = 5 * time.Second

	// DefaultMaxFetchRetries is the per-document retry budget before the
	// document is permanently skipped.
	DefaultMaxFetchRetries = 3

	// DefaultMaxChallengeRetries is how many times the whole session
	// acquisition is retried before the crawl fails with ChallengeFailed.
	DefaultMaxChallengeRetries = 2

	// DefaultFetchConcurrency is the number of disposable capture
	// contexts allowed in flight at once. Kept low on purpose: parallel
	// fetches multiply the anti-bot risk.
	DefaultFetchConcurrency = 2

	// DefaultMinTextLength is the extracted-text threshold below which a
	// document is flagged for manual review (likely a scanned image).
	DefaultMinTextLength = 100

	// DefaultDocDelay and DefaultDocDelayJitter pace consecutive document
	// fetches to mimic a human reader.
	DefaultDocDelay       = 3 * time.Second
	DefaultDocDelayJitter = 2 * time.Second

	// DefaultPageDelay and DefaultPageDelayJitter pace pagination clicks.
	DefaultPageDelay       = 2 * time.Second
	DefaultPageDelayJitter = 2 * time.Second

	// DefaultBreakEvery is the number of documents between longer pauses;
	// the actual count is randomized around this value.
	DefaultBreakEvery = 15

	// DefaultBreakDelay and DefaultBreakDelayJitter size the longer pause.
	DefaultBreakDelay       = 45 * time.Second
	DefaultBreakDelayJitter = 30 * time.Second

	// DefaultConsecutiveFailureLimit is how many fetches may fail in a row
	// before the session is assumed stale and rewarmed.
	DefaultConsecutiveFailureLimit = 3

	// DefaultViewportWidth and DefaultViewportHeight are the browser
	// viewport dimensions. A common desktop resolution avoids standing
	// out in the fingerprint.
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080

	// DefaultLocale and DefaultTimezone match the archive's audience; the
	// challenge scores consistency between locale, timezone, and IP.
	DefaultLocale   = "ru-RU"
	DefaultTimezone = "Europe/Moscow"

	// DefaultOutputRoot is where per-case output directories are created.
	DefaultOutputRoot = "./output"

	// AppName is used for XDG directory paths.
	AppName = "kadcrawl"
)

// DefaultRateLimitPhrases are the throttling banners the archive is known
// to serve. Detection requires exact containment of one of these phrases
// in the page's visible text; fuzzy matching would risk false positives,
// and a false positive pauses the whole crawl.
func DefaultRateLimitPhrases() []string {
	return []string{
		"Доступ к сервису ограничен",
		"Слишком много запросов",
		"Too many requests",
		"Rate limit",
	}
}

// Config holds all options for a crawl. It is populated from CLI flags
// and an optional YAML file, validated once, and passed to components at
// construction. No component reads global state.
type Config struct {
	// BaseURL is the archive entry point.
	BaseURL string

	// Headless controls whether the browser runs without a display.
	Headless bool

	// BrowserBin optionally pins the browser binary to launch. Empty
	// means let the launcher resolve one.
	BrowserBin string

	// ChallengeTimeout bounds the anti-bot handshake wait.
	ChallengeTimeout time.Duration

	// NavigationTimeout bounds each navigation and element wait.
	NavigationTimeout time.Duration

	// FetchTimeout bounds a single attachment capture attempt.
	FetchTimeout time.Duration

	// RewarmIdleThreshold is the idle period after which the session is
	// considered stale.
	RewarmIdleThreshold time.Duration

	// RewarmSettle is the pause after a warm-up fetch.
	RewarmSettle time.Duration

	// MaxFetchRetries is the per-document retry budget.
	MaxFetchRetries int

	// MaxChallengeRetries is the session acquisition retry budget.
	MaxChallengeRetries int

	// FetchConcurrency limits in-flight disposable capture contexts.
	FetchConcurrency int

	// MinTextLength is the manual-review threshold for extracted text.
	MinTextLength int

	// DocDelay/PageDelay and their jitters pace the crawl; BreakEvery and
	// BreakDelay insert longer randomized pauses.
	DocDelay         time.Duration
	DocDelayJitter   time.Duration
	PageDelay        time.Duration
	PageDelayJitter  time.Duration
	BreakEvery       int
	BreakDelay       time.Duration
	BreakDelayJitter time.Duration

	// ConsecutiveFailureLimit triggers a rewarm after this many fetch
	// failures in a row.
	ConsecutiveFailureLimit int

	// RateLimitPhrases is the throttling-banner list for the monitor.
	RateLimitPhrases []string

	// ViewportWidth/ViewportHeight, Locale, and Timezone shape the
	// browser fingerprint.
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	Timezone       string

	// OutputRoot is the parent directory for per-case output.
	OutputRoot string

	// Resume controls whether an existing checkpoint is honored.
	Resume bool

	// DBDir is the directory of the sqlite archive database. Empty
	// disables archiving.
	DBDir string

	// Verbose enables debug-level logging.
	Verbose bool
}

// New returns a Config with all defaults applied.
//
// Design decision: We use a constructor instead of relying on zero
// values because almost every default is non-zero, and the constructor
// doubles as documentation of what the defaults are.
func New() *Config {
	return &Config{
		BaseURL:                 DefaultBaseURL,
		Headless:                true,
		ChallengeTimeout:        DefaultChallengeTimeout,
		NavigationTimeout:       DefaultNavigationTimeout,
		FetchTimeout:            DefaultFetchTimeout,
		RewarmIdleThreshold:     DefaultRewarmIdleThreshold,
		RewarmSettle:            DefaultRewarmSettle,
		MaxFetchRetries:         DefaultMaxFetchRetries,
		MaxChallengeRetries:     DefaultMaxChallengeRetries,
		FetchConcurrency:        DefaultFetchConcurrency,
		MinTextLength:           DefaultMinTextLength,
		DocDelay:                DefaultDocDelay,
		DocDelayJitter:          DefaultDocDelayJitter,
		PageDelay:               DefaultPageDelay,
		PageDelayJitter:         DefaultPageDelayJitter,
		BreakEvery:              DefaultBreakEvery,
		BreakDelay:              DefaultBreakDelay,
		BreakDelayJitter:        DefaultBreakDelayJitter,
		ConsecutiveFailureLimit: DefaultConsecutiveFailureLimit,
		RateLimitPhrases:        DefaultRateLimitPhrases(),
		ViewportWidth:           DefaultViewportWidth,
		ViewportHeight:          DefaultViewportHeight,
		Locale:                  DefaultLocale,
		Timezone:                DefaultTimezone,
		OutputRoot:              DefaultOutputRoot,
		Resume:                  true,
		DBDir:                   XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for kadcrawl
// (~/.local/share/kadcrawl on Linux).
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for kadcrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
// It is called once after flag and file parsing, before any browser
// activity.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}
	if c.ChallengeTimeout <= 0 || c.NavigationTimeout <= 0 || c.FetchTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxFetchRetries < 1 {
		return ErrInvalidRetries
	}
	if c.FetchConcurrency < 1 {
		return ErrInvalidConcurrency
	}
	if c.MinTextLength < 0 {
		return ErrInvalidMinTextLength
	}
	if c.DocDelay < 0 || c.PageDelay < 0 || c.BreakDelay < 0 {
		return ErrInvalidDelay
	}
	if len(c.RateLimitPhrases) == 0 {
		return ErrNoRateLimitPhrases
	}
	if c.OutputRoot == "" {
		return ErrNoOutputRoot
	}
	return nil
}
