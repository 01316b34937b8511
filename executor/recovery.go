package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/use-agent/iwsa/orchestrator"
)

// attemptRecovery makes the one-shot LLM-guided recovery call allowed per
// page (spec §4.8 step 4): it asks C1 for updated selectors given the
// current URL, the selectors that just failed, and a small page-state
// descriptor, then patches strategy in place on success.
func (e *Executor) attemptRecovery(ctx context.Context, page *rod.Page, strategy *orchestrator.ScrapingStrategy, pageURL string, cause error) bool {
	descriptor := pageStateDescriptor(page)
	failureMsg := "no rows extracted"
	if cause != nil {
		failureMsg = cause.Error()
	}

	recovered, err := e.recovery.GenerateRecoveryStrategy(ctx, pageURL, strategy.Selectors, fmt.Sprintf("%s; %s", descriptor, failureMsg))
	if err != nil || !recovered.Success || len(recovered.Selectors) == 0 {
		slog.Debug("recovery strategy unavailable", "url", pageURL, "error", err)
		return false
	}

	strategy.Selectors = recovered.Selectors
	if recovered.ExtractionLogic != "" {
		strategy.ExtractionLogic = recovered.ExtractionLogic
	}
	return true
}

// pageStateDescriptor builds a short best-effort summary of the current DOM
// for the recovery prompt: title and body element/text counts.
func pageStateDescriptor(page *rod.Page) string {
	res, err := page.Eval(`() => {
		try {
			return JSON.stringify({
				title: document.title,
				elementCount: document.querySelectorAll('*').length,
				bodyTextLength: (document.body && document.body.innerText || '').length,
			});
		} catch (e) { return '{}'; }
	}`)
	if err != nil {
		return "page state unavailable"
	}
	return res.Value.Str()
}
