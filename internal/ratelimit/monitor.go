// Package ratelimit detects server-side throttling from page content.
//
// The archive does not answer throttled sessions with an HTTP 429; it
// serves a normal-looking page carrying a human-readable banner. The
// monitor extracts the visible text of a page and looks for known banner
// phrases. Detection is advisory: a missed banner just surfaces later as
// an ordinary fetch failure, but a false positive pauses the whole
// crawl, so matching is exact containment, never fuzzy.
package ratelimit

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
)

// ErrRateLimited is returned by orchestration code when the monitor
// detects throttling. It is systemic: the crawl pauses and persists
// progress rather than retrying.
var ErrRateLimited = errors.New("rate limited by archive")

// Verdict is the result of a page check.
type Verdict int

const (
	// Clear means no throttling banner was found.
	Clear Verdict = iota

	// RateLimited means a known throttling phrase is present.
	RateLimited
)

// String returns a human-readable verdict.
func (v Verdict) String() string {
	if v == RateLimited {
		return "rate limited"
	}
	return "clear"
}

// Monitor checks page content for throttling signatures.
type Monitor struct {
	// phrases are lowercase banner phrases to look for.
	phrases []string
}

// NewMonitor creates a Monitor for the given banner phrases.
// Phrases are matched case-insensitively by exact containment.
func NewMonitor(phrases []string) *Monitor {
	lower := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.TrimSpace(p); p != "" {
			lower = append(lower, strings.ToLower(p))
		}
	}
	return &Monitor{phrases: lower}
}

// Check inspects raw page HTML. It extracts visible text first so that
// a banner phrase occurring inside a script or attribute cannot trigger
// a false positive. Returns the matched phrase with the verdict.
func (m *Monitor) Check(pageHTML string) (Verdict, string) {
	return m.CheckText(VisibleText(pageHTML))
}

// CheckText inspects already-extracted visible text.
func (m *Monitor) CheckText(text string) (Verdict, string) {
	lower := strings.ToLower(text)
	for _, p := range m.phrases {
		if strings.Contains(lower, p) {
			return RateLimited, p
		}
	}
	return Clear, ""
}

// VisibleText extracts the rendered text of an HTML document, skipping
// script and style subtrees. Parse failures degrade to returning the
// input unchanged: for banner detection, over-matching the raw markup is
// safer than returning nothing.
func VisibleText(pageHTML string) string {
	root, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return pageHTML
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				b.WriteString(t)
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return strings.TrimSpace(b.String())
}
