package browser

import "errors"

// Browser session and capture errors.
var (
	// ErrChallengeFailed is returned when the anti-bot handshake does not
	// complete within the challenge timeout across all acquisition
	// attempts. Retrying without operator intervention is pointless: the
	// environment (IP reputation, fingerprint) is being rejected.
	ErrChallengeFailed = errors.New("challenge handshake failed")

	// ErrCaptureTimeout is returned when no matching attachment response
	// arrives within the fetch timeout. Retryable per document.
	ErrCaptureTimeout = errors.New("attachment capture timed out")

	// ErrCaptureEmpty is returned when a matching response arrives but its
	// body is empty. Retryable per document.
	ErrCaptureEmpty = errors.New("attachment response body empty")

	// ErrSessionClosed is returned when an operation is attempted on a
	// closed session.
	ErrSessionClosed = errors.New("browser session closed")
)
