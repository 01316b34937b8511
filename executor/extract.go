package executor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
)

// extractPage walks selectors over the current page's DOM, producing one Row
// per matched container (spec §4.8 step 3). Selectors is a flat list; the
// first entry is treated as the row container, the rest as field selectors
// scoped within each container.
func (e *Executor) extractPage(_ context.Context, page *rod.Page, selectors []string, pageURL string) ([]Row, error) {
	if len(selectors) == 0 {
		return nil, fmt.Errorf("strategy has no selectors")
	}
	containerSel := selectors[0]
	fieldSels := selectors[1:]

	containers, err := page.Elements(containerSel)
	if err != nil {
		return nil, fmt.Errorf("container selector %q failed: %w", containerSel, err)
	}

	rows := make([]Row, 0, len(containers))
	for _, container := range containers {
		row := Row{}
		if len(fieldSels) == 0 {
			text, _ := container.Text()
			row["text"] = strings.TrimSpace(text)
		} else {
			for _, sel := range fieldSels {
				val, ok := extractField(container, sel, pageURL)
				if ok {
					row[fieldName(sel)] = val
				}
			}
		}
		if len(row) == 0 {
			continue
		}
		row["_source_url"] = pageURL
		row["_extracted_at"] = time.Now().UTC().Format(time.RFC3339)
		rows = append(rows, row)
	}
	return rows, nil
}

// fieldName derives a row key from a selector, preferring a leading
// "name:selector" annotation the strategy may supply, else the raw selector.
func fieldName(sel string) string {
	if idx := strings.Index(sel, ":"); idx > 0 && !strings.ContainsAny(sel[:idx], ".#[] ") {
		return sel[:idx]
	}
	return sel
}

// extractField reads text content, or href/src for anchor/media selectors,
// resolving relative URLs against pageURL.
func extractField(container *rod.Element, sel string, pageURL string) (string, bool) {
	selector := sel
	if idx := strings.Index(sel, ":"); idx > 0 && !strings.ContainsAny(sel[:idx], ".#[] ") {
		selector = sel[idx+1:]
	}

	el, err := container.Element(selector)
	if err != nil {
		// The selector may target the container itself ("&" convention).
		if selector == "&" || selector == "" {
			el = container
		} else {
			return "", false
		}
	}

	for _, attr := range []string{"href", "src"} {
		if v, aerr := el.Attribute(attr); aerr == nil && v != nil && *v != "" {
			return resolveURL(pageURL, *v), true
		}
	}

	text, err := el.Text()
	if err != nil {
		return "", false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	return text, true
}

func resolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
