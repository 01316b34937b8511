package pipeline

import (
	"context"
	"errors"
	"testing"
)

type fakeExporter struct {
	name    string
	fail    bool
	records int
}

func (f *fakeExporter) Name() string { return f.name }

func (f *fakeExporter) Export(_ context.Context, rows []Row, _ map[string]string) (ExportResult, error) {
	if f.fail {
		return ExportResult{}, errors.New("export failed")
	}
	return ExportResult{Success: true, Destination: "mem://" + f.name, RecordsExported: len(rows)}, nil
}

func TestProcessAndExportSucceedsWhenAnyExporterSucceeds(t *testing.T) {
	p := New(&fakeExporter{name: "csv"}, &fakeExporter{name: "broken", fail: true})
	rows := []Row{{"title": "Widget", "price": "$9.99"}}

	result := p.ProcessAndExport(context.Background(), rows, []string{"csv", "broken"}, Meta{SourceDomain: "example.com"})

	if !result.Success {
		t.Fatal("expected pipeline success when at least one exporter succeeds")
	}
	if result.TotalOutputRecords != 1 {
		t.Errorf("TotalOutputRecords = %d, want 1", result.TotalOutputRecords)
	}
	if len(result.ExportResults) != 2 {
		t.Fatalf("expected 2 export results, got %d", len(result.ExportResults))
	}
}

func TestProcessAndExportFailsWhenAllExportersFail(t *testing.T) {
	p := New(&fakeExporter{name: "broken", fail: true})
	rows := []Row{{"title": "Widget"}}

	result := p.ProcessAndExport(context.Background(), rows, []string{"broken"}, Meta{})

	if result.Success {
		t.Fatal("expected pipeline failure when every exporter fails")
	}
}

func TestProcessAndExportUnknownFormatReportsError(t *testing.T) {
	p := New(&fakeExporter{name: "csv"})
	rows := []Row{{"title": "Widget"}}

	result := p.ProcessAndExport(context.Background(), rows, []string{"xml"}, Meta{})

	if result.ExportResults[0].Success {
		t.Fatal("expected unknown format to fail")
	}
	if result.ExportResults[0].Error == "" {
		t.Error("expected an error message for an unregistered format")
	}
}
