package export

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/use-agent/iwsa/pipeline"
)

func TestCSVExporterWritesHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	e := &CSVExporter{Dir: dir}

	rows := []pipeline.Row{{"title": "Widget", "price": "9.99"}}
	result, err := e.Export(context.Background(), rows, map[string]string{"source_domain": "example.com"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !result.Success || result.RecordsExported != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	content, err := os.ReadFile(result.Destination)
	if err != nil {
		t.Fatalf("failed to read exported file: %v", err)
	}
	if !strings.Contains(string(content), "price") || !strings.Contains(string(content), "9.99") {
		t.Errorf("csv content missing expected fields: %s", content)
	}
}

func TestCSVExporterErrorsOnEmptyRows(t *testing.T) {
	e := &CSVExporter{Dir: t.TempDir()}
	_, err := e.Export(context.Background(), nil, map[string]string{})
	if err == nil {
		t.Error("expected error for empty row set")
	}
}
