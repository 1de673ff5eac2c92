package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Tab identifies one of the record-card views that list documents.
type Tab string

// Source tabs of the record card. The same logical document may surface
// from up to three of them.
const (
	// TabActs is the non-paginated judicial-acts view.
	TabActs Tab = "court_acts"

	// TabCards is the per-instance accordion view with pagination.
	TabCards Tab = "cards"

	// TabEFile is the paginated electronic case-file view.
	TabEFile Tab = "electronic_case"
)

// Tabs lists all source tabs in traversal order.
func Tabs() []Tab {
	return []Tab{TabActs, TabCards, TabEFile}
}

// AttachmentMarker is the path segment that identifies attachment URLs:
// .../<marker>/<caseGUID>/<docGUID>/<filename>.
const AttachmentMarker = "PdfDocument"

// Identity is the deduplication key of a document.
//
// Normally it is the (caseGUID, docGUID) pair extracted from the
// attachment URL. When the URL does not yield a GUID pair, DocGUID holds
// a deterministic digest of the full URL and CaseGUID is empty, so two
// occurrences of the same malformed URL still collapse to one identity.
type Identity struct {
	CaseGUID string `json:"caseGuid"`
	DocGUID  string `json:"docGuid"`
}

// Key returns a stable string form used as a map key and as the entry
// format of the progress checkpoint.
func (id Identity) Key() string {
	return id.CaseGUID + "/" + id.DocGUID
}

// urlDigestLen is the hex length of the digest fallback identity.
// 32 hex characters (128 bits of SHA-256) keep collision risk negligible
// while staying readable in file names and logs.
const urlDigestLen = 32

// IdentityFromURL derives a document identity from an attachment URL.
//
// URL shape: .../PdfDocument/<caseGUID>/<docGUID>/<filename>. If the
// marker or either GUID segment is missing, the identity falls back to a
// fixed-length SHA-256 digest of the full URL, stable across calls.
func IdentityFromURL(rawURL string) Identity {
	parts := strings.Split(rawURL, "/")
	for i, p := range parts {
		if p != AttachmentMarker {
			continue
		}
		if i+2 < len(parts) && parts[i+1] != "" && parts[i+2] != "" {
			return Identity{CaseGUID: parts[i+1], DocGUID: parts[i+2]}
		}
		break
	}
	sum := sha256.Sum256([]byte(rawURL))
	return Identity{DocGUID: hex.EncodeToString(sum[:])[:urlDigestLen]}
}

// DocumentReference is a single observation of a document in one tab.
// It is immutable once produced by tab traversal. References from
// different tabs that denote the same document share an Identity but are
// distinct observations.
type DocumentReference struct {
	// CaseGUID and DocGUID mirror Identity(); kept as plain fields so the
	// JSON output is self-describing.
	CaseGUID string `json:"caseGuid"`
	DocGUID  string `json:"docGuid"`

	// URL is the attachment URL as observed in the page.
	URL string `json:"url"`

	// Filename is the last URL path segment.
	Filename string `json:"filename"`

	// SourceTab records which view surfaced this reference.
	SourceTab Tab `json:"sourceTab"`

	// InstanceID is set for references found inside an instance accordion
	// of the cards tab; empty otherwise.
	InstanceID string `json:"instanceId,omitempty"`

	// InstanceName is the human-readable instance title, when known.
	InstanceName string `json:"instanceName,omitempty"`

	// Date is the ISO date parsed from the filename, when present.
	Date string `json:"date,omitempty"`

	// DocType is the document kind parsed from the filename
	// (ruling, decision, and so on), when present.
	DocType string `json:"docType,omitempty"`

	// Title, Court, and Judge come from the rollover metadata next to the
	// attachment link; all optional.
	Title string `json:"title,omitempty"`
	Court string `json:"court,omitempty"`
	Judge string `json:"judge,omitempty"`

	// Signed and SignatureValid reflect the digital-signature badge.
	Signed         bool `json:"signed,omitempty"`
	SignatureValid bool `json:"signatureValid,omitempty"`

	// Position is the 1-based order within the owning instance; Page and
	// PositionOnPage locate the reference within tab pagination.
	Position       int `json:"position,omitempty"`
	Page           int `json:"page,omitempty"`
	PositionOnPage int `json:"positionOnPage,omitempty"`
}

// NewDocumentReference builds a reference from an attachment URL.
// Filename, identity, and the filename-derived metadata are all computed
// here so traversal code never re-parses URLs.
func NewDocumentReference(rawURL string, tab Tab, instanceID string) DocumentReference {
	id := IdentityFromURL(rawURL)
	filename := rawURL
	if i := strings.LastIndex(rawURL, "/"); i >= 0 {
		filename = rawURL[i+1:]
	}
	return DocumentReference{
		CaseGUID:   id.CaseGUID,
		DocGUID:    id.DocGUID,
		URL:        rawURL,
		Filename:   filename,
		SourceTab:  tab,
		InstanceID: instanceID,
		Date:       DateFromFilename(filename),
		DocType:    DocTypeFromFilename(filename),
	}
}

// Identity returns the deduplication key of this reference.
func (r DocumentReference) Identity() Identity {
	return Identity{CaseGUID: r.CaseGUID, DocGUID: r.DocGUID}
}

// filenameDatePattern matches the _YYYYMMDD_ segment of archive filenames
// like "A60-21280-2023_20251204_Opredelenie.pdf".
var filenameDatePattern = regexp.MustCompile(`_(\d{4})(\d{2})(\d{2})_`)

// DateFromFilename extracts the embedded date as "YYYY-MM-DD", or ""
// when the filename carries no date segment.
func DateFromFilename(filename string) string {
	m := filenameDatePattern.FindStringSubmatch(filename)
	if m == nil {
		return ""
	}
	return fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])
}

// DocTypeFromFilename extracts the trailing document-type token of archive
// filenames ("..._Opredelenie.pdf" -> "Opredelenie"). Returns "" when the
// filename does not follow the underscore convention.
func DocTypeFromFilename(filename string) string {
	name := filename
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[:i]
	}
	parts := strings.Split(name, "_")
	if len(parts) < 3 || parts[len(parts)-1] == "" {
		return ""
	}
	t := parts[len(parts)-1]
	return strings.ToUpper(t[:1]) + t[1:]
}

// DocumentRecord is a fetched document: the originating reference plus
// extracted content. Created once per unique identity after the first
// successful fetch; never refetched once checkpointed.
type DocumentRecord struct {
	DocumentReference

	// Text is the extracted plain text. Empty when extraction produced
	// nothing (typically a scanned image).
	Text string `json:"text"`

	// HasText reports whether any text was extracted.
	HasText bool `json:"hasText"`

	// CharCount is len(Text) in runes.
	CharCount int `json:"charCount"`

	// RequiresManualReview is set when the extracted text is shorter than
	// the configured minimum, indicating a scan that would need OCR.
	RequiresManualReview bool `json:"requiresManualReview"`

	// FetchedAt is the capture timestamp in UTC.
	FetchedAt time.Time `json:"fetchedAt"`
}

// NewDocumentRecord is the pure transition from a reference to a fetched
// record. minTextLength is the threshold below which the document is
// flagged for manual review.
func NewDocumentRecord(ref DocumentReference, text string, minTextLength int, fetchedAt time.Time) DocumentRecord {
	n := len([]rune(text))
	return DocumentRecord{
		DocumentReference:    ref,
		Text:                 text,
		HasText:              n > 0,
		CharCount:            n,
		RequiresManualReview: n < minTextLength,
		FetchedAt:            fetchedAt.UTC(),
	}
}
