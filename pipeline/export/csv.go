package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/use-agent/iwsa/pipeline"
)

// CSVExporter writes rows to a CSV file under a configured directory. No
// ecosystem CSV-writing library appears anywhere in the corpus, so this
// adapter uses the standard library's encoding/csv directly.
type CSVExporter struct {
	Dir string
}

func (e *CSVExporter) Name() string { return "csv" }

func (e *CSVExporter) Export(_ context.Context, rows []pipeline.Row, meta map[string]string) (pipeline.ExportResult, error) {
	clean := prepareRows(rows)
	if len(clean) == 0 {
		return pipeline.ExportResult{}, fmt.Errorf("no data to export")
	}
	columns := columnOrder(clean)

	filename := generateFilename(meta, "csv")
	dir := e.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pipeline.ExportResult{}, fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return pipeline.ExportResult{}, fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return pipeline.ExportResult{}, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range clean {
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = cellString(row[col])
		}
		if err := w.Write(record); err != nil {
			return pipeline.ExportResult{}, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return pipeline.ExportResult{}, fmt.Errorf("flush csv: %w", err)
	}

	return pipeline.ExportResult{
		Success:         true,
		Destination:     path,
		RecordsExported: len(clean),
	}, nil
}
