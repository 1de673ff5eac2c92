package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// CaseRecord holds the case-level fields parsed from the record card.
// It is created once per crawl and is immutable afterwards, except for
// Status which is refreshed from the record-card page.
type CaseRecord struct {
	// CaseNumber is the normalized case identifier.
	CaseNumber string `json:"caseNumber"`

	// CaseGUID is the archive's internal case identifier.
	CaseGUID string `json:"caseGuid"`

	// Status is the case status line from the card header.
	Status string `json:"status,omitempty"`

	// URL is the record-card URL.
	URL string `json:"url"`

	// ParsedAt is when the card was parsed, UTC.
	ParsedAt time.Time `json:"parsedAt"`

	// TotalDocuments and InstanceCount summarize the crawl for quick
	// inspection without loading the tab lists.
	TotalDocuments int `json:"totalDocuments"`
	InstanceCount  int `json:"instanceCount"`

	// Fingerprints maps instance IDs (and tab names for the non-instance
	// tabs) to the first document GUID seen there. Comparing fingerprints
	// across runs detects structural changes without a full re-parse.
	Fingerprints map[string]string `json:"fingerprints,omitempty"`
}

// InstanceRecord describes one judicial instance of a case, parsed from
// an accordion header of the cards tab. Instances are never deleted or
// merged; a case's instance list only grows across parses.
type InstanceRecord struct {
	// InstanceID is the accordion's data identifier.
	InstanceID string `json:"instanceId"`

	// CourtCode is the short court identifier parsed from the case number
	// prefix of this instance, when available.
	CourtCode string `json:"courtCode,omitempty"`

	// CourtName is the normalized full court name.
	CourtName string `json:"courtName,omitempty"`

	// InstanceType is the human-readable instance title
	// (first instance, appeal, cassation, ...).
	InstanceType string `json:"instanceType"`

	// RegDate is the registration date of the instance, when shown.
	RegDate string `json:"regDate,omitempty"`

	// CaseNumber is the case identifier as shown for this instance.
	CaseNumber string `json:"caseNumber,omitempty"`

	// Order is the 1-based position of the accordion, top to bottom.
	Order int `json:"order"`

	// PageCount is the pagination size discovered for this instance.
	PageCount int `json:"pageCount"`

	// Documents lists document GUIDs in on-page order.
	Documents []string `json:"documents"`
}

// AddDocument appends a document GUID if not already present, preserving
// on-page order. The list is append-only.
func (ir *InstanceRecord) AddDocument(docGUID string) bool {
	for _, d := range ir.Documents {
		if d == docGUID {
			return false
		}
	}
	ir.Documents = append(ir.Documents, docGUID)
	return true
}

// unsafeFolderChars are characters stripped from instance folder names.
var unsafeFolderChars = regexp.MustCompile(`[<>:"|?*]`)

// maxFolderNameLen bounds the instance-name part of folder names.
const maxFolderNameLen = 30

// FolderName returns the filesystem directory name for this instance:
// a zero-padded order, a sanitized instance title, and the first eight
// characters of the instance ID ("02_Апелляционная_5a7f7ecc").
func (ir *InstanceRecord) FolderName() string {
	safe := strings.NewReplacer(" ", "_", "/", "-", "\\", "-").Replace(ir.InstanceType)
	safe = unsafeFolderChars.ReplaceAllString(safe, "")
	if r := []rune(safe); len(r) > maxFolderNameLen {
		safe = string(r[:maxFolderNameLen])
	}
	id := ir.InstanceID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%02d_%s_%s", ir.Order, safe, id)
}

// NormalizeCourtName cleans whitespace and applies title case while
// keeping short all-caps abbreviations (court-type acronyms) intact.
func NormalizeCourtName(raw string) string {
	words := strings.Fields(raw)
	for i, w := range words {
		if w == strings.ToUpper(w) && len([]rune(w)) <= 3 {
			continue
		}
		r := []rune(strings.ToLower(w))
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
