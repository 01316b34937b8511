package orchestrator

import (
	"encoding/json"
	"strings"
)

// wireStrategy mirrors the JSON contract backends are instructed to emit
// (spec §6, "Strategy JSON schema").
type wireStrategy struct {
	Selectors       []string `json:"selectors"`
	ExtractionLogic string   `json:"extraction_logic"`
	Pagination      struct {
		Type      string   `json:"type"`
		Selectors []string `json:"selectors"`
		Logic     string   `json:"logic"`
	} `json:"pagination_strategy"`
	Filters []struct {
		Name         string `json:"name"`
		Selector     string `json:"selector"`
		Type         string `json:"type"`
		DefaultValue string `json:"default_value"`
	} `json:"filters"`
	ErrorHandling []string `json:"error_handling"`
	Confidence    *float64 `json:"confidence_score"`
	Reasoning     string   `json:"reasoning"`
}

// extractOutermostJSON locates the first '{' and the last '}' in content and
// returns the enclosed substring, per spec §4.4 step 2d / §9.
func extractOutermostJSON(content string) (string, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return content[start : end+1], true
}

// parseStrategy extracts and validates a ScrapingStrategy from raw backend
// content. Returns ok=false on any parse or validation failure — a soft
// failure per spec §4.4 that must not trip the circuit breaker.
func parseStrategy(content string) (ScrapingStrategy, bool) {
	jsonStr, found := extractOutermostJSON(content)
	if !found {
		return ScrapingStrategy{}, false
	}

	var w wireStrategy
	if err := json.Unmarshal([]byte(jsonStr), &w); err != nil {
		return ScrapingStrategy{}, false
	}

	// Required fields per spec §6: selectors, extraction_logic, confidence_score.
	if len(w.Selectors) == 0 || w.ExtractionLogic == "" || w.Confidence == nil {
		return ScrapingStrategy{}, false
	}

	strat := ScrapingStrategy{
		Success:         true,
		Selectors:       w.Selectors,
		ExtractionLogic: w.ExtractionLogic,
		Pagination: Pagination{
			Kind:      normalizePaginationKind(w.Pagination.Type),
			Selectors: w.Pagination.Selectors,
			Notes:     w.Pagination.Logic,
		},
		ErrorHandling: w.ErrorHandling,
		Confidence:    *w.Confidence,
		Reasoning:     w.Reasoning,
	}

	for _, f := range w.Filters {
		strat.Filters = append(strat.Filters, Filter{
			Name:     f.Name,
			Selector: f.Selector,
			Kind:     normalizeFilterKind(f.Type),
			Default:  f.DefaultValue,
		})
	}

	strat.normalize()

	if !strat.Valid() {
		return ScrapingStrategy{}, false
	}
	return strat, true
}

func normalizePaginationKind(s string) PaginationKind {
	switch s {
	case "numbered":
		return PaginationNumbered
	case "infinite_scroll", "infinite-scroll":
		return PaginationInfiniteScroll
	case "load_more", "load-more":
		return PaginationLoadMore
	default:
		return PaginationNone
	}
}

func normalizeFilterKind(s string) FilterKind {
	switch s {
	case "dropdown":
		return FilterDropdown
	case "checkbox":
		return FilterCheckbox
	case "slider":
		return FilterSlider
	default:
		return FilterText
	}
}
