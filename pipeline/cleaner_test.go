package pipeline

import "testing"

func TestCleanTextCollapsesWhitespaceAndEntities(t *testing.T) {
	got := cleanText("  Hello&nbsp;&amp;  World  \n\t ")
	want := "Hello & World"
	if got != want {
		t.Errorf("cleanText() = %q, want %q", got, want)
	}
}

func TestCleanPriceDisambiguatesThousandsVsDecimal(t *testing.T) {
	cases := map[string]string{
		"$1,234.56": "1234.56",
		"1.234,56":  "1234.56", // comma after the last period is the decimal separator
		"$99":       "99",
		"1,234":     "1234",
		"19,99":     "19.99",
	}
	for in, want := range cases {
		if got := cleanPrice(in); got != want {
			t.Errorf("cleanPrice(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanURLCollapsesDuplicateSlashesPreservesScheme(t *testing.T) {
	got := cleanURL("https://example.com//path//to//page")
	want := "https://example.com/path/to/page"
	if got != want {
		t.Errorf("cleanURL() = %q, want %q", got, want)
	}
}

func TestCleanURLHandlesProtocolRelative(t *testing.T) {
	got := cleanURL("//example.com/page")
	want := "https://example.com/page"
	if got != want {
		t.Errorf("cleanURL() = %q, want %q", got, want)
	}
}

func TestCleanEmailLowercasesAndExtracts(t *testing.T) {
	got := cleanEmail("  Contact: John.Doe@Example.COM please ")
	want := "john.doe@example.com"
	if got != want {
		t.Errorf("cleanEmail() = %q, want %q", got, want)
	}
}

func TestCleanPhoneCountryCodesNorthAmericanNumbers(t *testing.T) {
	cases := map[string]string{
		"(555) 123-4567":  "+15551234567",
		"15551234567":     "+15551234567",
		"+44 20 7946 0958": "+442079460958",
	}
	for in, want := range cases {
		if got := cleanPhone(in); got != want {
			t.Errorf("cleanPhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanRowPreservesReservedKeys(t *testing.T) {
	row := Row{"_extracted_at": int64(123), "title": "  spaced  "}
	cleaned, modified := cleanRow(row)
	if cleaned["_extracted_at"] != int64(123) {
		t.Errorf("reserved key was altered: %v", cleaned["_extracted_at"])
	}
	if !modified {
		t.Error("expected modified=true when a field value changes")
	}
}

func TestCleanNeverDropsRows(t *testing.T) {
	rows := []Row{{"title": "a"}, {"title": ""}, {}}
	out, stats := Clean(rows)
	if len(out) != len(rows) {
		t.Fatalf("Clean() dropped rows: got %d, want %d", len(out), len(rows))
	}
	if stats.Total != len(rows) || stats.Processed != len(rows) {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
