// Package pdftext validates captured attachment bytes and extracts
// their plain text.
//
// Validation and extraction are separate concerns on purpose: a capture
// that yields an HTML error page instead of a PDF must fail the fetch
// (and be retried), while a structurally valid PDF with no extractable
// text (a scanned image) is a successful fetch that gets flagged for
// manual review.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrNotPDF is returned when captured bytes are not a PDF document,
// typically a challenge interstitial or an error page that slipped
// through capture matching. Retryable: the next attempt usually gets
// the real document.
var ErrNotPDF = errors.New("captured response is not a PDF")

// pdfMagic is the required file header.
var pdfMagic = []byte("%PDF")

// Validate checks that data is a structurally sound PDF. The cheap
// magic-header check runs first so obvious non-PDFs never pay for a
// full structure walk.
func Validate(data []byte) error {
	if !bytes.HasPrefix(data, pdfMagic) {
		return fmt.Errorf("%w: missing %%PDF header", ErrNotPDF)
	}
	if err := api.Validate(bytes.NewReader(data), nil); err != nil {
		return fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	return nil
}

// Extract returns the plain text of a PDF. An empty string with a nil
// error means the document genuinely carries no text layer; extraction
// machinery failures are returned as errors and treated the same way by
// callers, so a broken text layer never blocks a crawl.
func Extract(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	text, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	var b strings.Builder
	if _, err := io.Copy(&b, text); err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return normalizeText(b.String()), nil
}

// normalizeText collapses runs of whitespace. PDF text extraction
// produces layout artifacts (split words stay split, but padding runs
// can be hundreds of spaces) that bloat output files.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
