// Package orchestrator implements the multi-provider LLM strategy
// orchestrator (C1): a prioritized pool of backends, each fronted by a
// circuit breaker and rate limiter, producing one ScrapingStrategy per
// request.
package orchestrator

import "strings"

// PaginationKind enumerates the allowed pagination strategies.
type PaginationKind string

const (
	PaginationNumbered       PaginationKind = "numbered"
	PaginationInfiniteScroll PaginationKind = "infinite-scroll"
	PaginationLoadMore       PaginationKind = "load-more"
	PaginationNone           PaginationKind = "none"
)

// FilterKind enumerates the allowed filter interaction kinds.
type FilterKind string

const (
	FilterDropdown FilterKind = "dropdown"
	FilterText     FilterKind = "text"
	FilterCheckbox FilterKind = "checkbox"
	FilterSlider   FilterKind = "slider"
)

// Pagination describes how to walk a site's result pages.
type Pagination struct {
	Kind      PaginationKind
	Selectors []string
	Notes     string
}

// Filter describes one applicable page filter.
type Filter struct {
	Name     string
	Selector string
	Kind     FilterKind
	Default  string
}

// Provenance records which backend produced a strategy and at what cost.
type Provenance struct {
	BackendName string
	LatencyMs   int64
	Cost        float64
}

// ScrapingStrategy is C1's output / C2's input (spec §3).
type ScrapingStrategy struct {
	Success         bool
	Selectors       []string
	ExtractionLogic string
	Pagination      Pagination
	Filters         []Filter
	ErrorHandling   []string
	Confidence      float64
	Reasoning       string
	Provenance      Provenance

	// FailureReason is set only when Success is false.
	FailureReason string
}

// maxFieldLen bounds any single free-text or selector string carried on a
// strategy (spec §3: "all string fields normalized ... bounded length").
const maxFieldLen = 2000

// normalizeField strips embedded NULs, trims surrounding whitespace, and
// truncates to maxFieldLen, per the §3 invariant that every string field on
// a parsed strategy is normalized.
func normalizeField(s string) string {
	if strings.IndexByte(s, 0) != -1 {
		s = strings.ReplaceAll(s, "\x00", "")
	}
	s = strings.TrimSpace(s)
	if len(s) > maxFieldLen {
		s = s[:maxFieldLen]
	}
	return s
}

// normalize applies normalizeField to every string field on the strategy,
// including nested selectors and filters.
func (s *ScrapingStrategy) normalize() {
	for i, sel := range s.Selectors {
		s.Selectors[i] = normalizeField(sel)
	}
	s.ExtractionLogic = normalizeField(s.ExtractionLogic)
	s.Reasoning = normalizeField(s.Reasoning)

	s.Pagination.Notes = normalizeField(s.Pagination.Notes)
	for i, sel := range s.Pagination.Selectors {
		s.Pagination.Selectors[i] = normalizeField(sel)
	}

	for i := range s.Filters {
		s.Filters[i].Name = normalizeField(s.Filters[i].Name)
		s.Filters[i].Selector = normalizeField(s.Filters[i].Selector)
		s.Filters[i].Default = normalizeField(s.Filters[i].Default)
	}

	for i, e := range s.ErrorHandling {
		s.ErrorHandling[i] = normalizeField(e)
	}
}

// Valid checks the invariants spec §3 places on a successful strategy:
// non-empty selectors, confidence in [0,1], and a recognized pagination kind.
func (s ScrapingStrategy) Valid() bool {
	if !s.Success {
		return true
	}
	if len(s.Selectors) == 0 {
		return false
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return false
	}
	switch s.Pagination.Kind {
	case PaginationNumbered, PaginationInfiniteScroll, PaginationLoadMore, PaginationNone, "":
	default:
		return false
	}
	return true
}

// StrategyRequest is C1's input (spec §3).
type StrategyRequest struct {
	URL    string
	HTML   string
	Intent string
	Fields []string
}

// MaxHTML is the truncation bound for HTML forwarded to any backend (spec §4.4/§5).
const MaxHTML = 50_000

// TruncateHTML bounds html to MaxHTML characters, appending a visible marker
// when truncation occurs. The full HTML is never forwarded past this point.
func TruncateHTML(html string) string {
	if len(html) <= MaxHTML {
		return html
	}
	return html[:MaxHTML] + "… [truncated]"
}
