package export

import (
	"testing"

	"github.com/use-agent/iwsa/pipeline"
)

func TestSanitizeFilenameStripsUnsafeChars(t *testing.T) {
	got := sanitizeFilename("iwsa_shop example.com_20260730.csv")
	if got != "iwsa_shop_example.com_20260730.csv" {
		t.Errorf("sanitizeFilename() = %q", got)
	}
}

func TestGenerateFilenameFallsBackToDefaultSource(t *testing.T) {
	name := generateFilename(map[string]string{}, "csv")
	if name[:18] != "iwsa_scraped_data_" {
		t.Errorf("generateFilename() = %q, want iwsa_scraped_data_ prefix", name)
	}
}

func TestPrepareRowsDropsUnlistedMetadataKeys(t *testing.T) {
	rows := []pipeline.Row{{
		"title":              "Widget",
		"_source_url":        "https://example.com",
		"_content_hash":      "abc123",
		"_validation_score":  0.9,
	}}
	clean := prepareRows(rows)
	if _, ok := clean[0]["_content_hash"]; ok {
		t.Error("expected _content_hash to be stripped")
	}
	if _, ok := clean[0]["_source_url"]; !ok {
		t.Error("expected _source_url to be kept")
	}
}

func TestColumnOrderPutsDataColumnsBeforeMetadata(t *testing.T) {
	rows := []pipeline.Row{{"title": "a", "_source_url": "u"}, {"price": "1"}}
	cols := columnOrder(rows)
	if len(cols) != 3 || cols[len(cols)-1] != "_source_url" {
		t.Errorf("columnOrder() = %v", cols)
	}
}
