package executor

import (
	"context"

	"github.com/use-agent/iwsa/models"
)

// FetchSeedHTML acquires a pooled browser instance, navigates it to target,
// and returns the rendered HTML. It is the seed fetch that feeds the
// orchestrator's strategy generation (spec §4.6 step 1), reusing C2's pool
// rather than a second, independent fetch path.
func (e *Executor) FetchSeedHTML(ctx context.Context, target string) (string, error) {
	inst, err := e.pool.Acquire(ctx, false)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to acquire browser instance", err)
	}
	defer e.pool.Release(inst)

	if err := e.navigate(ctx, inst.Page, target); err != nil {
		return "", err
	}

	html, err := inst.Page.HTML()
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeNavigation, "failed to read page HTML", err)
	}
	return html, nil
}
