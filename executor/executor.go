// Package executor implements the strategy executor (C2, spec §4.8): it
// drives one physical browser instance through a ScrapingStrategy produced
// by the orchestrator, walking pagination and applying filters with
// human-like timing, and hands back extracted rows.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/use-agent/iwsa/antidetect"
	"github.com/use-agent/iwsa/browser"
	"github.com/use-agent/iwsa/models"
	"github.com/use-agent/iwsa/orchestrator"
	"github.com/use-agent/iwsa/ratelimit"
	"github.com/use-agent/iwsa/session"
)

// Site describes the target of one executor run.
type Site struct {
	URL      string
	SiteID   string // stable identifier used as the session key; defaults to URL's host
	BaseURL  string // origin used for session save/restore; defaults to URL's scheme+host
}

// Requirements names the user-requested fields; only filters whose Name
// matches a requirement are applied (spec §4.8 step 2).
type Requirements struct {
	Fields  []string
	Filters map[string]string // filter name -> desired value
}

// Row is one extracted record plus its reserved metadata (underscore-prefixed keys).
type Row map[string]any

// ExtractionResult is C2's output (spec §4.8).
type ExtractionResult struct {
	Success        bool
	Rows           []Row
	PagesProcessed int
	Errors         []string
	FailureReason  string
}

const maxErrors = 10

// recoveryAttempter is satisfied by *orchestrator.Orchestrator; narrowed to
// the one call C2 needs so tests can fake it without a real LLM backend.
type recoveryAttempter interface {
	GenerateRecoveryStrategy(ctx context.Context, url string, failedSelectors []string, pageStateDescriptor string) (orchestrator.ScrapingStrategy, error)
}

// Executor is C2: one browser pool and session manager shared across runs.
type Executor struct {
	pool      *browser.Pool
	sessions  *session.Manager
	recovery  recoveryAttempter
	limiter   *ratelimit.Registry
	detector  *antidetect.TimingAnalyzer
	maxPages  int
}

// New builds an executor. recovery may be nil, in which case step 4's
// LLM-guided recovery is skipped and a failed page is simply not retried.
func New(pool *browser.Pool, sessions *session.Manager, recovery recoveryAttempter, limiter *ratelimit.Registry, maxPages int) *Executor {
	if maxPages <= 0 {
		maxPages = 20
	}
	return &Executor{
		pool:     pool,
		sessions: sessions,
		recovery: recovery,
		limiter:  limiter,
		detector: antidetect.NewTimingAnalyzer(),
		maxPages: maxPages,
	}
}

// Scrape runs strategy against site under profile, honoring requirements'
// field/filter selection (spec §4.8).
func (e *Executor) Scrape(ctx context.Context, site Site, strategy orchestrator.ScrapingStrategy, req Requirements, profile antidetect.Profile) (ExtractionResult, error) {
	params := antidetect.Resolve(profile)
	site = normalizeSite(site)

	inst, err := e.pool.Acquire(ctx, false)
	if err != nil {
		return ExtractionResult{}, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to acquire browser instance", err)
	}
	defer e.pool.Release(inst)

	sess, err := e.sessionFor(ctx, site)
	if err != nil {
		return ExtractionResult{}, err
	}

	if err := e.sessions.Restore(ctx, sess.ID, inst.Page); err != nil {
		slog.Debug("session restore skipped", "session", sess.ID, "error", err)
	}

	result := ExtractionResult{}

	if err := e.navigate(ctx, inst.Page, site.URL); err != nil {
		result.Errors = appendBounded(result.Errors, err.Error())
		return ExtractionResult{Success: false, Errors: result.Errors, FailureReason: "navigation failed"}, nil
	}

	if recoverable, failure := e.checkDetection(ctx, inst.Page, params); !recoverable {
		result.Errors = appendBounded(result.Errors, failure)
		return ExtractionResult{Success: false, Errors: result.Errors, FailureReason: failure}, nil
	}

	e.applyFilters(ctx, inst.Page, strategy.Filters, req, params)

	maxPages := e.maxPages
	lastRowCount := -1

	for page := 1; page <= maxPages; page++ {
		rows, extractErr := e.extractPage(ctx, inst.Page, strategy.Selectors, site.URL)
		if extractErr != nil || len(rows) == 0 {
			recovered := false
			if e.recovery != nil {
				recovered = e.attemptRecovery(ctx, inst.Page, &strategy, site.URL, extractErr)
				if recovered {
					rows, extractErr = e.extractPage(ctx, inst.Page, strategy.Selectors, site.URL)
				}
			}
			if extractErr != nil {
				result.Errors = appendBounded(result.Errors, extractErr.Error())
			}
		}
		result.PagesProcessed++
		result.Rows = append(result.Rows, rows...)

		if saveErr := e.sessions.Save(ctx, sess.ID, inst.Page); saveErr != nil {
			slog.Debug("session save failed", "session", sess.ID, "error", saveErr)
		}

		if e.limiter != nil {
			if rlErr := e.limiter.Acquire(ctx, "scrape:"+site.SiteID, 1); rlErr != nil {
				result.Errors = appendBounded(result.Errors, rlErr.Error())
				break
			}
		}
		e.detector.Record(site.SiteID, time.Now())

		if page >= maxPages {
			break
		}

		advanced, newCount, err := e.paginate(ctx, inst.Page, strategy.Pagination, lastRowCount, len(rows))
		if err != nil {
			result.Errors = appendBounded(result.Errors, err.Error())
			break
		}
		if !advanced {
			break
		}
		lastRowCount = newCount
	}

	result.Success = len(result.Rows) > 0
	if !result.Success && result.FailureReason == "" {
		result.FailureReason = "no rows extracted"
	}
	return result, nil
}

func normalizeSite(site Site) Site {
	if site.SiteID == "" || site.BaseURL == "" {
		if u, err := url.Parse(site.URL); err == nil {
			if site.SiteID == "" {
				site.SiteID = u.Host
			}
			if site.BaseURL == "" {
				site.BaseURL = u.Scheme + "://" + u.Host
			}
		}
	}
	return site
}

func (e *Executor) sessionFor(ctx context.Context, site Site) (*session.Session, error) {
	sess, err := e.sessions.Get(site.SiteID)
	if err == nil {
		return sess, nil
	}
	return e.sessions.Create(ctx, site.BaseURL, site.SiteID)
}

func (e *Executor) navigate(ctx context.Context, page *rod.Page, target string) error {
	p := page.Context(ctx)
	if err := p.Navigate(target); err != nil {
		return models.NewScrapeError(models.ErrCodeNavigation, "navigation to target URL failed", err)
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge", "error", err)
	}
	return nil
}

// checkDetection runs the CAPTCHA/rate-limit heuristic; on a positive hit it
// sleeps the profile's suggested back-off and reassesses exactly once.
func (e *Executor) checkDetection(ctx context.Context, page *rod.Page, params antidetect.Params) (ok bool, failureReason string) {
	html, err := page.HTML()
	if err != nil {
		return true, ""
	}
	d := antidetect.Detect(0, html)
	if !d.Detected {
		return true, ""
	}

	delay := time.Duration(d.SuggestedDelay) * time.Millisecond
	if delay <= 0 {
		delay = params.InterRequest
	}
	antidetect.SleepWithContext(ctx, delay)

	html, err = page.HTML()
	if err != nil {
		return true, ""
	}
	d = antidetect.Detect(0, html)
	if !d.Detected {
		return true, ""
	}
	return false, fmt.Sprintf("detection positive after reassessment: %s (%s)", d.ErrorCode, d.Description)
}

func appendBounded(errs []string, msg string) []string {
	errs = append(errs, msg)
	if len(errs) > maxErrors {
		errs = errs[len(errs)-maxErrors:]
	}
	return errs
}

