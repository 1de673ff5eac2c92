package navigate

import (
	"errors"
	"testing"

	"github.com/go-rod/rod"
)

// The chronology containers persist across tab switches, so reading
// the wrong one silently yields the other tab's rows. These selectors
// are the adapters' contract with the archive markup.
func TestTabViewSelectors(t *testing.T) {
	t.Parallel()

	if cardsView.container != "#chrono_list_content" {
		t.Errorf("cards container = %q", cardsView.container)
	}
	if efileView.container != "#chrono_ed_content" {
		t.Errorf("electronic case-file container = %q", efileView.container)
	}
	if cardsView.container == efileView.container {
		t.Error("cards and electronic case-file views share a container")
	}
	if actsTabSelector != "#case_acts" {
		t.Errorf("acts tab selector = %q", actsTabSelector)
	}
}

// recordingScope captures the selectors resolved against it.
type recordingScope struct {
	selectors []string
}

func (r *recordingScope) Element(selector string) (*rod.Element, error) {
	r.selectors = append(r.selectors, selector)
	return nil, errors.New("no such element")
}

func TestClickPagerResolvesWithinScope(t *testing.T) {
	t.Parallel()

	scope := &recordingScope{}
	err := clickPager(scope, 3)
	if err == nil {
		t.Fatal("clickPager() error = nil, want lookup failure")
	}

	want := `.js-chrono-pagination-pager-item[data-page_num="3"]`
	if len(scope.selectors) != 1 || scope.selectors[0] != want {
		t.Errorf("pager lookup = %v, want [%s]", scope.selectors, want)
	}
}

func TestCollapseButtonSelector(t *testing.T) {
	t.Parallel()

	got := collapseButtonSelector("11111111-2222-3333-4444-555555555555")
	want := `.js-chrono-item-header[data-id="11111111-2222-3333-4444-555555555555"] .b-collapse.js-collapse`
	if got != want {
		t.Errorf("collapseButtonSelector() = %q, want %q", got, want)
	}
}

func TestBlockByID(t *testing.T) {
	t.Parallel()

	blocks := parseChronoBlocks(chronoFragment)
	if blk := blockByID(blocks, "66666666-7777-8888-9999-000000000000"); blk == nil || blk.Title != "Апелляционная инстанция" {
		t.Errorf("blockByID() = %+v", blk)
	}
	if blk := blockByID(blocks, "missing"); blk != nil {
		t.Errorf("blockByID(missing) = %+v, want nil", blk)
	}
}
