package config

import "errors"

// Configuration validation errors returned by Config.Validate.
//
// Design decision: Package-level sentinel errors rather than errors
// created inline in Validate, so callers can use errors.Is while still
// getting human-readable messages.
var (
	// ErrNoBaseURL is returned when the archive entry URL is empty.
	ErrNoBaseURL = errors.New("no base URL configured")

	// ErrInvalidTimeout is returned when any of the challenge, navigation,
	// or fetch timeouts is not positive. A zero timeout would turn every
	// wait into an immediate failure.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRetries is returned when the fetch retry budget is below
	// one; at least one attempt per document is required.
	ErrInvalidRetries = errors.New("invalid max fetch retries: must be at least 1")

	// ErrInvalidConcurrency is returned when the fetch concurrency limit
	// is below one.
	ErrInvalidConcurrency = errors.New("invalid fetch concurrency: must be at least 1")

	// ErrInvalidMinTextLength is returned when the manual-review text
	// threshold is negative.
	ErrInvalidMinTextLength = errors.New("invalid min text length: must be non-negative")

	// ErrInvalidDelay is returned when any pacing delay is negative.
	// Use zero to disable a delay.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrNoRateLimitPhrases is returned when the throttling-phrase list
	// is empty; without it the crawler cannot detect rate limiting and
	// would hammer a throttled session.
	ErrNoRateLimitPhrases = errors.New("no rate limit phrases configured")

	// ErrNoOutputRoot is returned when the output directory is empty.
	ErrNoOutputRoot = errors.New("no output root configured")
)
