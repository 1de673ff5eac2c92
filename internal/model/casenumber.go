package model

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidCaseNumber is returned when a case identifier does not match
// the documented archive pattern (court prefix, sequence number, year),
// e.g. "А60-21280/2023". The crawl fails fast on this error before any
// browser activity starts.
var ErrInvalidCaseNumber = errors.New("invalid case number: expected <court-prefix><number>-<number>/<year>")

// caseNumberPattern matches normalized case numbers.
// The court prefix is one or more letters followed by digits (the court
// code), then a sequence number and a four-digit year.
var caseNumberPattern = regexp.MustCompile(`^[\p{Lu}]+\d+-\d+/\d{4}$`)

// latinLookalikes maps Latin capitals to their Cyrillic homoglyphs.
// Users routinely type the court prefix with a Latin keyboard layout
// ("A60-..." instead of "А60-..."); the archive's suggest endpoint only
// recognizes the Cyrillic form.
var latinLookalikes = map[rune]rune{
	'A': 'А', 'B': 'В', 'C': 'С', 'E': 'Е', 'H': 'Н', 'K': 'К',
	'M': 'М', 'O': 'О', 'P': 'Р', 'T': 'Т', 'X': 'Х', 'Y': 'У',
}

// NormalizeCaseNumber canonicalizes a user-supplied case identifier:
// Unicode NFC normalization, upper-casing, whitespace trimming, and
// folding of Latin homoglyphs into Cyrillic.
//
// Design decision: We fold homoglyphs here rather than trying both forms
// against the archive because:
//  1. The suggest endpoint is rate-limited; every extra query has a cost
//  2. A single canonical form gives a stable output directory name
//  3. The fold is unambiguous for the letters that appear in court codes
func NormalizeCaseNumber(s string) string {
	s = strings.ToUpper(strings.TrimSpace(norm.NFC.String(s)))
	return strings.Map(func(r rune) rune {
		if c, ok := latinLookalikes[r]; ok {
			return c
		}
		return r
	}, s)
}

// ParseCaseNumber normalizes and validates a case identifier.
// It returns the normalized form, or ErrInvalidCaseNumber if the input
// does not match the archive's numbering pattern.
func ParseCaseNumber(s string) (string, error) {
	n := NormalizeCaseNumber(s)
	if !caseNumberPattern.MatchString(n) {
		return "", ErrInvalidCaseNumber
	}
	return n, nil
}

// SafeCaseDirName converts a normalized case number into a filesystem-safe
// directory component ("А60-21280/2023" -> "А60-21280-2023").
func SafeCaseDirName(caseNumber string) string {
	return strings.ReplaceAll(caseNumber, "/", "-")
}
