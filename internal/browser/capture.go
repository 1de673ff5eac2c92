package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-rod/rod/lib/proto"

	"github.com/kadcrawl/kadcrawl/internal/model"
)

// pdfMIMEType is the content type of attachment responses.
const pdfMIMEType = "application/pdf"

// isAttachmentResponse reports whether a network response is the
// attachment we are after. The URL check survives the challenge
// redirect chain (the final response URL keeps the attachment path);
// the MIME check catches responses served from rewritten URLs.
func isAttachmentResponse(url, mimeType string) bool {
	if strings.Contains(url, "/"+model.AttachmentMarker+"/") {
		return true
	}
	return strings.EqualFold(mimeType, pdfMIMEType)
}

// attachmentTracker pairs CDP response metadata with loading-finished
// events and elects the first fully-loaded response that matches the
// attachment predicate. The single-slot ready channel drops later
// matches instead of blocking the event loop.
type attachmentTracker struct {
	mu      sync.Mutex
	matched map[proto.NetworkRequestID]struct{}
	ready   chan proto.NetworkRequestID
}

func newAttachmentTracker() *attachmentTracker {
	return &attachmentTracker{
		matched: make(map[proto.NetworkRequestID]struct{}),
		ready:   make(chan proto.NetworkRequestID, 1),
	}
}

// observe records responses that match the attachment predicate.
func (t *attachmentTracker) observe(e *proto.NetworkResponseReceived) {
	if !isAttachmentResponse(e.Response.URL, e.Response.MIMEType) {
		return
	}
	t.mu.Lock()
	t.matched[e.RequestID] = struct{}{}
	t.mu.Unlock()
}

// finished resolves a loading-finished event against observed matches.
// It returns true once a capture target is elected, which also stops
// the event loop.
func (t *attachmentTracker) finished(e *proto.NetworkLoadingFinished) bool {
	t.mu.Lock()
	_, ok := t.matched[e.RequestID]
	t.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case t.ready <- e.RequestID:
	default:
	}
	return true
}

// decodeResponseBody converts a CDP body payload into raw bytes.
func decodeResponseBody(body string, base64Encoded bool) ([]byte, error) {
	if !base64Encoded {
		return []byte(body), nil
	}
	return base64.StdEncoding.DecodeString(body)
}

// CaptureAttachment fetches one attachment by navigating a short-lived
// page to its URL and capturing the matching network response.
//
// Design decision: We capture via CDP network events instead of issuing
// an HTTP request for the URL because:
//  1. The challenge token never leaves the browser; a plain HTTP client
//     would hit the interstitial, not the document
//  2. In-browser navigation keeps the request fingerprint consistent
//     with the warmed session
//  3. The event listener is armed before navigation starts, so a fast
//     response can never be missed
//
// Returns ErrCaptureTimeout when no matching response arrives in time
// and ErrCaptureEmpty when the response body is empty. Both are
// per-document retryable.
func (s *Session) CaptureAttachment(ctx context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	b := s.browser
	s.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create capture page: %w", err)
	}
	page = page.Context(cctx)
	defer func() { _ = page.Close() }()

	tracker := newAttachmentTracker()
	go page.EachEvent(tracker.observe, tracker.finished)()

	// A navigation that ends in a download is reported as an error by
	// the browser even though the response streamed fine, so navigation
	// errors are logged but not fatal here; the capture wait decides.
	if err := page.Navigate(url); err != nil {
		s.logger.Debug("capture navigation returned error",
			slog.String("url", url), slog.String("error", err.Error()))
	}

	select {
	case <-cctx.Done():
		return nil, fmt.Errorf("%w: %s", ErrCaptureTimeout, url)
	case id := <-tracker.ready:
		res, err := proto.NetworkGetResponseBody{RequestID: id}.Call(page)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		body, err := decodeResponseBody(res.Body, res.Base64Encoded)
		if err != nil {
			return nil, fmt.Errorf("decode response body: %w", err)
		}
		if len(body) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrCaptureEmpty, url)
		}
		s.Touch()
		return body, nil
	}
}
