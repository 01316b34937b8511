package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/use-agent/iwsa/pipeline"
)

const sheetName = "Scraped Data"

// ExcelExporter writes rows to a single-sheet .xlsx workbook with a bold
// header row and auto-fit column widths capped at 50 characters, matching
// the original exporter's openpyxl formatting.
type ExcelExporter struct {
	Dir string
}

func (e *ExcelExporter) Name() string { return "excel" }

func (e *ExcelExporter) Export(_ context.Context, rows []pipeline.Row, meta map[string]string) (pipeline.ExportResult, error) {
	clean := prepareRows(rows)
	if len(clean) == 0 {
		return pipeline.ExportResult{}, fmt.Errorf("no data to export")
	}
	columns := columnOrder(clean)

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return pipeline.ExportResult{}, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"CCCCCC"}, Pattern: 1},
	})
	if err != nil {
		return pipeline.ExportResult{}, fmt.Errorf("build header style: %w", err)
	}

	widths := make([]int, len(columns))
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, col)
		widths[i] = len(col)
	}
	headerEnd, _ := excelize.CoordinatesToCellName(len(columns), 1)
	_ = f.SetCellStyle(sheetName, "A1", headerEnd, headerStyle)

	for r, row := range clean {
		for c, col := range columns {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			value := cellString(row[col])
			_ = f.SetCellValue(sheetName, cell, value)
			if len(value) > widths[c] {
				widths[c] = len(value)
			}
		}
	}

	for i := range columns {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		width := widths[i] + 2
		if width > 50 {
			width = 50
		}
		_ = f.SetColWidth(sheetName, colName, colName, float64(width))
	}
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, Split: false, XSplit: 0, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	filename := generateFilename(meta, "xlsx")
	dir := e.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pipeline.ExportResult{}, fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, filename)

	if err := f.SaveAs(path); err != nil {
		return pipeline.ExportResult{}, fmt.Errorf("save xlsx: %w", err)
	}

	return pipeline.ExportResult{
		Success:         true,
		Destination:     path,
		RecordsExported: len(clean),
	}, nil
}
