package pipeline

import "testing"

func TestDetectFieldTypeByKeyName(t *testing.T) {
	cases := map[string]string{
		"contact_email": "email",
		"product_url":   "url",
		"phone_number":  "phone",
		"item_price":    "price",
		"posted_date":   "date",
		"title":         "text",
	}
	for key, want := range cases {
		if got := detectFieldType(key, "x"); got != want {
			t.Errorf("detectFieldType(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestValidateRowMarksValidCompleteRow(t *testing.T) {
	row := Row{"title": "Widget", "price": "19.99", "url": "https://example.com/widget"}
	validated, isValid := validateRow(row)
	if !isValid {
		t.Errorf("expected valid row, got errors=%v warnings=%v", validated["_validation_errors"], validated["_validation_warnings"])
	}
	score, _ := validated["_validation_score"].(float64)
	if score < 0.5 {
		t.Errorf("expected score >= 0.5, got %v", score)
	}
}

func TestValidateRowFlagsEmptyRow(t *testing.T) {
	row := Row{"title": ""}
	validated, isValid := validateRow(row)
	if isValid {
		t.Error("expected empty row to be invalid")
	}
	errs, _ := validated["_validation_errors"].([]string)
	if len(errs) == 0 {
		t.Error("expected at least one validation error for an empty row")
	}
}

func TestValidateNeverDropsRows(t *testing.T) {
	rows := []Row{{"title": "a"}, {}}
	out, stats := Validate(rows)
	if len(out) != len(rows) {
		t.Fatalf("Validate() dropped rows: got %d, want %d", len(out), len(rows))
	}
	if stats.Failed == 0 {
		t.Error("expected the empty row to count as failed")
	}
}
