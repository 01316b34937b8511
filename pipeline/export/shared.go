// Package export provides the concrete pipeline.Exporter adapters: CSV,
// JSON, Excel, and Google Sheets (spec §4.9's "Export fan-out").
package export

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/use-agent/iwsa/pipeline"
)

var (
	unsafeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._\-]+`)
	keptMetaKeys      = map[string]bool{
		"_source_url":       true,
		"_extracted_at":     true,
		"_validation_score": true,
	}
)

// sanitizeFilename strips anything outside a conservative filesystem-safe
// charset, mirroring the original exporter's sanitize_filename helper.
func sanitizeFilename(name string) string {
	return unsafeFilenameRe.ReplaceAllString(name, "_")
}

// generateFilename builds "iwsa_<source>_<YYYYMMDD_HHMMSS>.<ext>" (spec §6).
func generateFilename(meta map[string]string, ext string) string {
	source := meta["source_domain"]
	if source == "" {
		source = "scraped_data"
	}
	timestamp := time.Now().UTC().Format("20060102_150405")
	return sanitizeFilename(fmt.Sprintf("iwsa_%s_%s.%s", source, timestamp, ext))
}

// prepareRows strips private metadata fields from every row except the
// small allow-list the original exporter carries through.
func prepareRows(rows []pipeline.Row) []pipeline.Row {
	out := make([]pipeline.Row, 0, len(rows))
	for _, row := range rows {
		clean := make(pipeline.Row, len(row))
		for key, value := range row {
			if strings.HasPrefix(key, "_") && !keptMetaKeys[key] {
				continue
			}
			clean[key] = value
		}
		out = append(out, clean)
	}
	return out
}

// columnOrder produces a stable column ordering: keys observed across every
// row, non-metadata fields first (alphabetical), then kept metadata fields.
func columnOrder(rows []pipeline.Row) []string {
	seen := make(map[string]bool)
	var dataCols, metaCols []string
	for _, row := range rows {
		for key := range row {
			if seen[key] {
				continue
			}
			seen[key] = true
			if strings.HasPrefix(key, "_") {
				metaCols = append(metaCols, key)
			} else {
				dataCols = append(dataCols, key)
			}
		}
	}
	sort.Strings(dataCols)
	sort.Strings(metaCols)
	return append(dataCols, metaCols...)
}

// cellString renders a row value for a flat (CSV/Excel/Sheets) cell.
func cellString(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
