package navigate

import "errors"

// Navigation errors.
var (
	// ErrNotFound is returned when the search suggest produces no
	// candidates for a case number.
	ErrNotFound = errors.New("case not found")

	// ErrAmbiguousResult is returned when the suggest candidates cannot be
	// narrowed to a single exact match. The crawler refuses to guess:
	// fetching the wrong case's documents is worse than failing.
	ErrAmbiguousResult = errors.New("ambiguous search result")

	// ErrParseMismatch is returned when a page renders but its structure
	// does not match what traversal expects. It scopes to one tab; the
	// crawl continues with the remaining tabs.
	ErrParseMismatch = errors.New("page structure mismatch")
)
