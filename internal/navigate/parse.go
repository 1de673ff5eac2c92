package navigate

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/kadcrawl/kadcrawl/internal/model"
)

// The parsing layer works on HTML fragments captured from live elements.
// It is deliberately pure: traversal code hands it strings, it hands
// back structs, and everything in between is testable without a browser.
// Rows that do not match the expected structure are skipped, never
// guessed at.

// suggestion is one entry of the search suggest dropdown.
type suggestion struct {
	// Text is the visible candidate text (case number plus party names).
	Text string

	// Href is the record-card link, when the anchor carries one.
	Href string

	// GUID is the case identifier the suggest service puts in the
	// anchor's id attribute. Not every anchor has a usable href, so the
	// GUID is the primary route to the record card.
	GUID string
}

// attachmentLink is one document link found in a tab.
type attachmentLink struct {
	Href           string
	Title          string
	Judge          string
	Signed         bool
	SignatureValid bool
}

// instanceBlock is one accordion of the chronology view: its header
// metadata plus the attachment links and pagination currently rendered
// under it.
type instanceBlock struct {
	ID         string
	Title      string
	Court      string
	RegDate    string
	CaseNumber string
	MaxPage    int
	Links      []attachmentLink
}

// parseFragment parses an HTML fragment, returning nil on failure.
func parseFragment(fragment string) *html.Node {
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil
	}
	return root
}

// walk visits every element node depth-first.
func walk(n *html.Node, visit func(*html.Node)) {
	if n.Type == html.ElementNode {
		visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

// attrVal returns an attribute value, or "".
func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// hasClass reports whether the node's class list contains class.
func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrVal(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// nodeText returns the node's visible text with whitespace collapsed.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// findByClass returns the first descendant with the given class, or nil.
func findByClass(n *html.Node, class string) *html.Node {
	var found *html.Node
	walk(n, func(e *html.Node) {
		if found == nil && hasClass(e, class) {
			found = e
		}
	})
	return found
}

// parseSuggestions extracts the candidates of the suggest dropdown:
// every anchor with visible text and at least one route to the record
// card (an id-attribute GUID or an href).
func parseSuggestions(fragment string) []suggestion {
	root := parseFragment(fragment)
	if root == nil {
		return nil
	}
	var out []suggestion
	walk(root, func(n *html.Node) {
		if n.Data != "a" {
			return
		}
		href := attrVal(n, "href")
		guid := attrVal(n, "id")
		text := nodeText(n)
		if text == "" || (href == "" && guid == "") {
			return
		}
		out = append(out, suggestion{Text: text, Href: href, GUID: guid})
	})
	return out
}

// suggestionCasePattern extracts the case-number token from suggestion
// text, which also carries party names.
var suggestionCasePattern = regexp.MustCompile(`[\p{Lu}]+\d+-\d+/\d{4}`)

// extractCaseNumber pulls the normalized case number out of suggestion
// text, or "" when none is present.
func extractCaseNumber(text string) string {
	return suggestionCasePattern.FindString(model.NormalizeCaseNumber(text))
}

// parseAttachmentLinks collects document links from a fragment that has
// no accordion structure (the judicial-acts table, the electronic case
// file list). Signature badges and judge rollovers are resolved against
// the nearest enclosing item container.
func parseAttachmentLinks(fragment string) []attachmentLink {
	root := parseFragment(fragment)
	if root == nil {
		return nil
	}
	var out []attachmentLink
	collectLinks(root, &out)
	return out
}

// attachmentHrefMarker identifies document anchors.
var attachmentHrefMarker = "/" + model.AttachmentMarker + "/"

// collectLinks appends every attachment anchor under n, resolving
// per-item metadata from the anchor's ancestor chain.
func collectLinks(n *html.Node, out *[]attachmentLink) {
	walk(n, func(e *html.Node) {
		if e.Data != "a" || !strings.Contains(attrVal(e, "href"), attachmentHrefMarker) {
			return
		}
		link := attachmentLink{
			Href:  attrVal(e, "href"),
			Title: nodeText(e),
		}
		if item := itemContainer(e); item != nil {
			if badge := findByClass(item, "g-valid_sign"); badge != nil {
				link.Signed = true
				link.SignatureValid = true
			}
			if j := findByClass(item, "js-judges-rollover"); j != nil {
				link.Judge = nodeText(j)
			}
		}
		*out = append(*out, link)
	})
}

// itemContainer walks up from an anchor to the enclosing document row:
// a chronology item or a table row.
func itemContainer(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if p.Data == "tr" || hasClass(p, "b-chrono-item") {
			return p
		}
	}
	return nil
}

// pageNumAttr is the pagination attribute of pager items. The highest
// value present is the page count; a single pass over the pager is
// enough because the archive renders every page number.
const pageNumAttr = "data-page_num"

// parseMaxPageNum returns the highest page number advertised by pager
// items in the fragment, or 1 when there is no pagination.
func parseMaxPageNum(fragment string) int {
	root := parseFragment(fragment)
	if root == nil {
		return 1
	}
	return maxPageNum(root)
}

func maxPageNum(n *html.Node) int {
	highest := 1
	walk(n, func(e *html.Node) {
		v := attrVal(e, pageNumAttr)
		if v == "" {
			return
		}
		if p, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && p > highest {
			highest = p
		}
	})
	return highest
}

// regDatePattern matches the registration date shown in accordion
// headers (DD.MM.YYYY).
var regDatePattern = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`)

// parseChronoBlocks splits the chronology view into instance blocks.
// The view is a flat list: each accordion header is followed by its
// content until the next header, so the parser attributes links and
// pagination to the most recent header seen.
//
// Headers without a data-id are skipped: without the instance identifier
// the documents under it could not be attributed on a later pass, and
// misattributing them would corrupt the instance folders.
func parseChronoBlocks(fragment string) []instanceBlock {
	root := parseFragment(fragment)
	if root == nil {
		return nil
	}

	var blocks []instanceBlock
	var cur *instanceBlock
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "b-chrono-item-header") && hasClass(n, "js-chrono-item-header"):
				if id := attrVal(n, "data-id"); id != "" {
					blocks = append(blocks, parseChronoHeader(n, id))
					cur = &blocks[len(blocks)-1]
				} else {
					cur = nil
				}
				return
			case cur != nil && n.Data == "a" && strings.Contains(attrVal(n, "href"), attachmentHrefMarker):
				link := attachmentLink{Href: attrVal(n, "href"), Title: nodeText(n)}
				if item := itemContainer(n); item != nil {
					if badge := findByClass(item, "g-valid_sign"); badge != nil {
						link.Signed = true
						link.SignatureValid = true
					}
					if j := findByClass(item, "js-judges-rollover"); j != nil {
						link.Judge = nodeText(j)
					}
				}
				cur.Links = append(cur.Links, link)
				return
			case cur != nil && attrVal(n, pageNumAttr) != "":
				if p, err := strconv.Atoi(strings.TrimSpace(attrVal(n, pageNumAttr))); err == nil && p > cur.MaxPage {
					cur.MaxPage = p
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(root)
	return blocks
}

// parseChronoHeader extracts instance metadata from an accordion header.
func parseChronoHeader(n *html.Node, id string) instanceBlock {
	blk := instanceBlock{ID: id, MaxPage: 1}
	text := nodeText(n)
	blk.Title = text
	if t := findByClass(n, "js-instance-type"); t != nil {
		blk.Title = nodeText(t)
	}
	if c := findByClass(n, "js-court"); c != nil {
		blk.Court = model.NormalizeCourtName(nodeText(c))
	}
	blk.RegDate = regDatePattern.FindString(text)
	blk.CaseNumber = extractCaseNumber(text)
	return blk
}

// parseCaseStatus extracts the status line from the record-card header.
func parseCaseStatus(fragment string) string {
	root := parseFragment(fragment)
	if root == nil {
		return ""
	}
	if s := findByClass(root, "js-case-status"); s != nil {
		return nodeText(s)
	}
	return ""
}

// caseGUIDFromURL extracts the case GUID from a record-card URL
// (".../Card/<guid>" or ".../Card?number=..."). Returns "" when the URL
// does not carry a GUID path segment.
func caseGUIDFromURL(cardURL string) string {
	parts := strings.Split(strings.SplitN(cardURL, "?", 2)[0], "/")
	for i, p := range parts {
		if strings.EqualFold(p, "Card") && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1]
		}
	}
	return ""
}
