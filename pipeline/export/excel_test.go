package export

import (
	"context"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/use-agent/iwsa/pipeline"
)

func TestExcelExporterWritesSheetWithHeader(t *testing.T) {
	dir := t.TempDir()
	e := &ExcelExporter{Dir: dir}

	rows := []pipeline.Row{{"title": "Widget", "price": "9.99"}}
	result, err := e.Export(context.Background(), rows, map[string]string{"source_domain": "example.com"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := excelize.OpenFile(result.Destination)
	if err != nil {
		t.Fatalf("open exported xlsx: %v", err)
	}
	defer f.Close()

	header, err := f.GetCellValue(sheetName, "A1")
	if err != nil || header != "price" {
		t.Errorf("expected first data column header 'price', got %q (err=%v)", header, err)
	}
}
