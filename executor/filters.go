package executor

import (
	"context"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/iwsa/antidetect"
	"github.com/use-agent/iwsa/orchestrator"
)

// applyFilters performs a profile-appropriate interaction for every strategy
// filter that matches a user requirement (spec §4.8 step 2). A single
// filter's failure is logged and skipped; it never aborts the run.
func (e *Executor) applyFilters(ctx context.Context, page *rod.Page, filters []orchestrator.Filter, req Requirements, params antidetect.Params) {
	if len(req.Filters) == 0 {
		return
	}
	timing := antidetect.NewTiming(params.Timing)
	mouse := antidetect.NewMouse(page, params.Mouse)

	for _, f := range filters {
		value, wanted := req.Filters[f.Name]
		if !wanted {
			continue
		}

		antidetect.SleepWithContext(ctx, timing.PreActionDelay())

		if err := applyOneFilter(ctx, page, mouse, f, value, timing); err != nil {
			slog.Warn("filter interaction failed, skipping", "filter", f.Name, "error", err)
			continue
		}

		antidetect.SleepWithContext(ctx, timing.PostActionDelay())
	}
}

func applyOneFilter(ctx context.Context, page *rod.Page, mouse *antidetect.Mouse, f orchestrator.Filter, value string, timing *antidetect.Timing) error {
	el, err := page.Element(f.Selector)
	if err != nil {
		return err
	}

	switch f.Kind {
	case orchestrator.FilterDropdown:
		_, err := el.Select([]string{value}, true, rod.SelectorTypeText)
		return err

	case orchestrator.FilterCheckbox:
		box, err := el.Shape()
		if err != nil || len(box.Quads) == 0 {
			return antidetect.ErrElementNotVisible
		}
		return mouse.ClickElement(ctx, el)

	case orchestrator.FilterSlider:
		return mouse.ClickElement(ctx, el)

	case orchestrator.FilterText:
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return err
		}
		if err := el.SelectAllText(); err != nil {
			return err
		}
		for _, r := range value {
			if err := el.Input(string(r)); err != nil {
				return err
			}
			antidetect.SleepWithContext(ctx, timing.TypingDelay())
		}
		return nil

	default:
		return mouse.ClickElement(ctx, el)
	}
}
