package pipeline

import "testing"

func TestEnrichRowAddsFieldCountAndDomain(t *testing.T) {
	row := Row{"title": "Widget", "product_url": "https://shop.example.com/widget"}
	enriched, modified := enrichRow(row, Meta{SourceDomain: "shop.example.com"})
	if !modified {
		t.Error("expected enrichment to modify the row")
	}
	if enriched["_field_count"] != 2 {
		t.Errorf("_field_count = %v, want 2", enriched["_field_count"])
	}
	if enriched["product_url_domain"] != "shop.example.com" {
		t.Errorf("product_url_domain = %v, want shop.example.com", enriched["product_url_domain"])
	}
	if _, ok := enriched["_content_hash"]; !ok {
		t.Error("expected _content_hash to be set")
	}
}

func TestEnrichRowAddsNumericPrice(t *testing.T) {
	row := Row{"price": "$1,234.50"}
	enriched, _ := enrichRow(row, Meta{})
	v, ok := enriched["price_numeric"].(float64)
	if !ok || v != 1234.50 {
		t.Errorf("price_numeric = %v, want 1234.50", enriched["price_numeric"])
	}
}

func TestContentHashStableAcrossKeyOrder(t *testing.T) {
	a := Row{"title": "x", "price": "1"}
	b := Row{"price": "1", "title": "x"}
	if contentHash(a) != contentHash(b) {
		t.Error("contentHash should be stable regardless of map key order")
	}
}

func TestEnrichFlagsExactDuplicateRows(t *testing.T) {
	rows := []Row{
		{"title": "Widget", "price": "10"},
		{"title": "Widget", "price": "10"},
	}
	out, _ := Enrich(rows, Meta{})
	if _, ok := out[1]["_duplicate_of"]; !ok {
		t.Error("expected second identical row to be flagged as a duplicate")
	}
}

func TestEnrichNeverDropsRows(t *testing.T) {
	rows := []Row{{"title": "a"}, {"title": "b"}, {}}
	out, stats := Enrich(rows, Meta{})
	if len(out) != len(rows) {
		t.Fatalf("Enrich() dropped rows: got %d, want %d", len(out), len(rows))
	}
	if stats.Total != len(rows) {
		t.Errorf("stats.Total = %d, want %d", stats.Total, len(rows))
	}
}
