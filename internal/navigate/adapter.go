package navigate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/kadcrawl/kadcrawl/internal/model"
)

// Adapter selectors. Each tab renders its own structure; isolating the
// selectors here means a markup change in one view touches one adapter.
const (
	actsTabSelector       = "#case_acts"
	actsContainerSelector = "#gr_case_acts"

	cardsTabSelector     = ".js-case-chrono-button--cards"
	efileTabSelector     = ".js-case-chrono-button--ed"
	chronoListContentSel = "#chrono_list_content"
	chronoEDContentSel   = "#chrono_ed_content"

	instanceContainerSel = ".js-chrono-items-container"
	chronoPagerItemFmt   = ".js-chrono-pagination-pager-item[data-page_num=\"%d\"]"
)

// chronoView binds a chronology tab button to the container that tab
// renders into. The cards and electronic-case views use different
// containers; reading the wrong one yields the other tab's rows.
type chronoView struct {
	button    string
	container string
}

var (
	cardsView = chronoView{button: cardsTabSelector, container: chronoListContentSel}
	efileView = chronoView{button: efileTabSelector, container: chronoEDContentSel}
)

// elementScope is the element-lookup surface shared by rod pages and
// elements. Pagination clicks resolve against a scope so a pager lookup
// can be confined to one instance's container.
type elementScope interface {
	Element(selector string) (*rod.Element, error)
}

// tabAdapter is one tab's traversal strategy. Adapters own every
// selector and quirk of their view; the engine stays tab-agnostic.
type tabAdapter interface {
	collect(ctx context.Context, e *Engine) (*TabResult, error)
}

// actsAdapter walks the judicial-acts view: a flat table with no
// pagination.
type actsAdapter struct{}

func (actsAdapter) collect(ctx context.Context, e *Engine) (*TabResult, error) {
	page := e.page(ctx)

	// The acts view is usually active on card load, but not always;
	// some layouts render it collapsed behind its tab button.
	if tab, err := page.Timeout(2 * time.Second).Element(actsTabSelector); err == nil {
		if err := tab.Click(proto.InputMouseButtonLeft, 1); err != nil {
			e.logger.Debug("acts tab click failed", slog.String("error", err.Error()))
		}
	}

	container, err := page.Element(actsContainerSelector)
	if err != nil {
		return nil, fmt.Errorf("%w: judicial acts container missing", ErrParseMismatch)
	}
	fragment, err := container.HTML()
	if err != nil {
		return nil, fmt.Errorf("read judicial acts: %w", err)
	}

	res := &TabResult{Tab: model.TabActs}
	appendRefs(res, parseAttachmentLinks(fragment), model.TabActs, "", "", 1)
	return res, nil
}

// cardsAdapter walks the chronology view grouped by judicial instance.
// Each instance accordion expands and paginates independently.
type cardsAdapter struct{}

func (cardsAdapter) collect(ctx context.Context, e *Engine) (*TabResult, error) {
	page := e.page(ctx)
	if err := openChronoTab(page, cardsView); err != nil {
		return nil, err
	}

	fragment, err := chronoHTML(page, cardsView.container)
	if err != nil {
		return nil, err
	}
	blocks := parseChronoBlocks(fragment)
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: chronology view has no instance blocks", ErrParseMismatch)
	}

	res := &TabResult{Tab: model.TabCards}
	for i, blk := range blocks {
		if expanded, err := expandInstance(page, i, blk.ID); err != nil {
			e.logger.Warn("instance expand failed",
				slog.String("instance", blk.ID), slog.String("error", err.Error()))
			res.SkippedRows++
		} else if expanded {
			// Expansion renders the instance content lazily; re-read the
			// block to pick up its links and pagination.
			refetched, err := chronoHTML(page, cardsView.container)
			if err != nil {
				return nil, err
			}
			if again := blockByID(parseChronoBlocks(refetched), blk.ID); again != nil {
				blk = *again
			}
		}

		inst := model.InstanceRecord{
			InstanceID:   blk.ID,
			InstanceType: blk.Title,
			CourtName:    blk.Court,
			RegDate:      blk.RegDate,
			CaseNumber:   blk.CaseNumber,
			Order:        i + 1,
			PageCount:    blk.MaxPage,
		}
		addInstanceLinks(res, &inst, blk.Links, 1)

		for p := 2; p <= blk.MaxPage; p++ {
			// Each accordion has its own pager; the click must resolve
			// inside this instance's container or it pages a different
			// instance.
			container, err := instanceContainer(page, i)
			if err != nil {
				e.logger.Warn("instance container missing",
					slog.String("instance", blk.ID), slog.Int("page", p),
					slog.String("error", err.Error()))
				res.SkippedRows++
				continue
			}
			if err := clickPager(container, p); err != nil {
				e.logger.Warn("pagination click failed",
					slog.String("instance", blk.ID), slog.Int("page", p),
					slog.String("error", err.Error()))
				res.SkippedRows++
				continue
			}
			if err := e.pageDelay(ctx); err != nil {
				return nil, err
			}
			refetched, err := chronoHTML(page, cardsView.container)
			if err != nil {
				return nil, err
			}
			addInstanceLinks(res, &inst, linksForInstance(refetched, blk.ID), p)
		}
		res.Instances = append(res.Instances, inst)
	}
	return res, nil
}

// expandInstance opens a collapsed accordion and waits for its content
// container to become visible. Returns whether an expansion happened;
// an instance with no expand button carries only its header documents.
func expandInstance(page *rod.Page, idx int, instanceID string) (bool, error) {
	container, err := instanceContainer(page, idx)
	if err != nil {
		return false, err
	}
	if visible, err := container.Visible(); err == nil && visible {
		return false, nil
	}
	btn, err := page.Element(collapseButtonSelector(instanceID))
	if err != nil {
		return false, nil
	}
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, fmt.Errorf("expand click: %w", err)
	}
	if err := container.WaitVisible(); err != nil {
		return false, fmt.Errorf("content not visible after expand: %w", err)
	}
	return true, nil
}

// collapseButtonSelector targets the expand toggle inside one
// instance's accordion header.
func collapseButtonSelector(instanceID string) string {
	return fmt.Sprintf(".js-chrono-item-header[data-id=%q] .b-collapse.js-collapse", instanceID)
}

// instanceContainer returns the idx-th accordion content container.
// Containers are re-resolved on every use because pagination swaps the
// DOM under them.
func instanceContainer(page *rod.Page, idx int) (*rod.Element, error) {
	containers, err := page.Elements(instanceContainerSel)
	if err != nil {
		return nil, fmt.Errorf("instance containers: %w", err)
	}
	if idx >= len(containers) {
		return nil, fmt.Errorf("instance container %d of %d missing", idx+1, len(containers))
	}
	return containers[idx], nil
}

// blockByID returns the parsed block for one instance, or nil.
func blockByID(blocks []instanceBlock, id string) *instanceBlock {
	for i := range blocks {
		if blocks[i].ID == id {
			return &blocks[i]
		}
	}
	return nil
}

// linksForInstance re-parses the chronology and returns the links
// currently rendered under one instance.
func linksForInstance(fragment, instanceID string) []attachmentLink {
	if blk := blockByID(parseChronoBlocks(fragment), instanceID); blk != nil {
		return blk.Links
	}
	return nil
}

// efileAdapter walks the electronic case-file view: its own content
// container with a single global pagination.
type efileAdapter struct{}

func (efileAdapter) collect(ctx context.Context, e *Engine) (*TabResult, error) {
	page := e.page(ctx)
	if err := openChronoTab(page, efileView); err != nil {
		return nil, err
	}

	fragment, err := chronoHTML(page, efileView.container)
	if err != nil {
		return nil, err
	}

	res := &TabResult{Tab: model.TabEFile}
	appendRefs(res, parseAttachmentLinks(fragment), model.TabEFile, "", "", 1)

	for p := 2; p <= parseMaxPageNum(fragment); p++ {
		container, err := page.Element(efileView.container)
		if err != nil {
			return nil, fmt.Errorf("%w: electronic case-file content missing", ErrParseMismatch)
		}
		if err := clickPager(container, p); err != nil {
			e.logger.Warn("pagination click failed",
				slog.Int("page", p), slog.String("error", err.Error()))
			res.SkippedRows++
			continue
		}
		if err := e.pageDelay(ctx); err != nil {
			return nil, err
		}
		refetched, err := chronoHTML(page, efileView.container)
		if err != nil {
			return nil, err
		}
		appendRefs(res, parseAttachmentLinks(refetched), model.TabEFile, "", "", p)
	}
	return res, nil
}

// openChronoTab clicks a chronology tab button and waits for that tab's
// content container to become visible. Waiting for mere existence is
// not enough: the containers persist across tab switches and the
// inactive one keeps its previous content.
func openChronoTab(page *rod.Page, view chronoView) error {
	btn, err := page.Element(view.button)
	if err != nil {
		return fmt.Errorf("%w: tab button %s missing", ErrParseMismatch, view.button)
	}
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click tab button: %w", err)
	}
	container, err := page.Element(view.container)
	if err != nil {
		return fmt.Errorf("%w: container %s missing after tab click", ErrParseMismatch, view.container)
	}
	if err := container.WaitVisible(); err != nil {
		return fmt.Errorf("wait for %s: %w", view.container, err)
	}
	return nil
}

// chronoHTML reads a chronology container's current HTML.
func chronoHTML(page *rod.Page, containerSel string) (string, error) {
	el, err := page.Element(containerSel)
	if err != nil {
		return "", fmt.Errorf("%w: container %s missing", ErrParseMismatch, containerSel)
	}
	fragment, err := el.HTML()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", containerSel, err)
	}
	return fragment, nil
}

// clickPager clicks the pager item for a page number, resolved within
// the given scope.
func clickPager(scope elementScope, pageNum int) error {
	item, err := scope.Element(fmt.Sprintf(chronoPagerItemFmt, pageNum))
	if err != nil {
		return fmt.Errorf("pager item %d missing: %w", pageNum, err)
	}
	if err := item.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click pager item %d: %w", pageNum, err)
	}
	return nil
}

// appendRefs converts parsed links into document references, numbering
// them within the tab. Links whose href cannot even produce a filename
// do not exist at parse level, so every link here becomes a reference.
func appendRefs(res *TabResult, links []attachmentLink, tab model.Tab, instanceID, instanceName string, pageNum int) {
	for i, l := range links {
		ref := model.NewDocumentReference(l.Href, tab, instanceID)
		ref.Title = l.Title
		ref.Judge = l.Judge
		ref.Signed = l.Signed
		ref.SignatureValid = l.SignatureValid
		ref.InstanceName = instanceName
		ref.Page = pageNum
		ref.PositionOnPage = i + 1
		ref.Position = len(res.Refs) + 1
		res.Refs = append(res.Refs, ref)
	}
}

// addInstanceLinks appends one instance page's links to both the tab
// result and the instance record.
func addInstanceLinks(res *TabResult, inst *model.InstanceRecord, links []attachmentLink, pageNum int) {
	for i, l := range links {
		ref := model.NewDocumentReference(l.Href, model.TabCards, inst.InstanceID)
		ref.Title = l.Title
		ref.Judge = l.Judge
		ref.Signed = l.Signed
		ref.SignatureValid = l.SignatureValid
		ref.InstanceName = inst.InstanceType
		ref.Page = pageNum
		ref.PositionOnPage = i + 1
		ref.Position = len(inst.Documents) + 1
		if inst.AddDocument(ref.DocGUID) {
			res.Refs = append(res.Refs, ref)
		}
	}
}
