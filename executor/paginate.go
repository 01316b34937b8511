package executor

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/iwsa/antidetect"
	"github.com/use-agent/iwsa/orchestrator"
)

// paginate attempts to advance to the next page per pagination.kind (spec
// §4.8 step 3). It returns advanced=false when there is nowhere further to
// go, which ends the extraction loop without counting as an error.
func (e *Executor) paginate(ctx context.Context, page *rod.Page, p orchestrator.Pagination, prevRows, curRows int) (advanced bool, newRowCount int, err error) {
	switch p.Kind {
	case orchestrator.PaginationNone, "":
		return false, curRows, nil

	case orchestrator.PaginationNumbered:
		return e.paginateNumbered(ctx, page, p)

	case orchestrator.PaginationLoadMore:
		return e.paginateLoadMore(ctx, page, p)

	case orchestrator.PaginationInfiniteScroll:
		return e.paginateInfiniteScroll(ctx, page, p, curRows)

	default:
		return false, curRows, nil
	}
}

func (e *Executor) paginateNumbered(ctx context.Context, page *rod.Page, p orchestrator.Pagination) (bool, int, error) {
	if len(p.Selectors) == 0 {
		return false, 0, nil
	}
	next, err := page.Element(p.Selectors[0])
	if err != nil {
		return false, 0, nil // no "next" element: end of pagination, not an error
	}
	if err := next.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, 0, nil
	}
	pctx := page.Context(ctx)
	if err := pctx.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		// fall through; the page may simply be slow, the next extraction
		// attempt will surface a real failure if the navigation never landed.
		_ = err
	}
	return true, 0, nil
}

func (e *Executor) paginateLoadMore(ctx context.Context, page *rod.Page, p orchestrator.Pagination) (bool, int, error) {
	if len(p.Selectors) == 0 {
		return false, 0, nil
	}
	trigger, err := page.Element(p.Selectors[0])
	if err != nil {
		return false, 0, nil
	}
	if err := trigger.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, 0, nil
	}
	antidetect.SleepWithContext(ctx, 800*time.Millisecond)
	return true, 0, nil
}

func (e *Executor) paginateInfiniteScroll(ctx context.Context, page *rod.Page, p orchestrator.Pagination, curRows int) (bool, int, error) {
	before := curRows
	if _, err := page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		return false, before, nil
	}
	antidetect.SleepWithContext(ctx, 1200*time.Millisecond)

	containerSel := ""
	if len(p.Selectors) > 0 {
		containerSel = p.Selectors[0]
	}
	if containerSel == "" {
		return false, before, nil
	}
	els, err := page.Elements(containerSel)
	if err != nil {
		return false, before, nil
	}
	after := len(els)
	if after <= before {
		return false, after, nil
	}
	return true, after, nil
}
