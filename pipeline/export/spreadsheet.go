package export

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/use-agent/iwsa/pipeline"
)

// SpreadsheetExporter writes rows into a Google Sheets spreadsheet via a
// service account, reusing the spreadsheet named by SpreadsheetID when set,
// otherwise creating and (optionally) sharing a new one (spec §4.9, §6). No
// lookup by title is made.
type SpreadsheetExporter struct {
	CredentialsB64 string
	ShareEmail     string
	SpreadsheetID  string // when set, reuse this spreadsheet instead of creating a new one

	service *sheets.Service
}

func (e *SpreadsheetExporter) Name() string { return "spreadsheet" }

func (e *SpreadsheetExporter) client(ctx context.Context) (*sheets.Service, error) {
	if e.service != nil {
		return e.service, nil
	}
	raw, err := base64.StdEncoding.DecodeString(e.CredentialsB64)
	if err != nil {
		return nil, fmt.Errorf("decode service account credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, sheets.SpreadsheetsScope, sheets.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("build sheets client: %w", err)
	}
	e.service = svc
	return svc, nil
}

func (e *SpreadsheetExporter) Export(ctx context.Context, rows []pipeline.Row, meta map[string]string) (pipeline.ExportResult, error) {
	clean := prepareRows(rows)
	if len(clean) == 0 {
		return pipeline.ExportResult{}, fmt.Errorf("no data to export")
	}
	columns := columnOrder(clean)

	svc, err := e.client(ctx)
	if err != nil {
		return pipeline.ExportResult{}, err
	}

	spreadsheetID, err := e.getOrCreateSpreadsheet(ctx, svc, meta)
	if err != nil {
		return pipeline.ExportResult{}, err
	}

	values := make([][]any, 0, len(clean)+1)
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	values = append(values, header)
	for _, row := range clean {
		record := make([]any, len(columns))
		for i, col := range columns {
			record[i] = cellString(row[col])
		}
		values = append(values, record)
	}

	_, err = svc.Spreadsheets.Values.Update(spreadsheetID, "A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return pipeline.ExportResult{}, fmt.Errorf("write spreadsheet values: %w", err)
	}

	if err := e.formatHeader(ctx, svc, spreadsheetID, len(columns)); err != nil {
		return pipeline.ExportResult{}, fmt.Errorf("format spreadsheet header: %w", err)
	}

	return pipeline.ExportResult{
		Success:         true,
		Destination:     fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s", spreadsheetID),
		RecordsExported: len(clean),
	}, nil
}

func (e *SpreadsheetExporter) getOrCreateSpreadsheet(ctx context.Context, svc *sheets.Service, meta map[string]string) (string, error) {
	if e.SpreadsheetID != "" {
		return e.SpreadsheetID, nil
	}

	title := spreadsheetTitle(meta)
	spreadsheet, err := svc.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: title},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create spreadsheet: %w", err)
	}

	if e.ShareEmail != "" {
		driveSvc, err := newDriveSharer(ctx, e)
		if err == nil && driveSvc != nil {
			_ = driveSvc.share(spreadsheet.SpreadsheetId, e.ShareEmail)
		}
	}

	return spreadsheet.SpreadsheetId, nil
}

func (e *SpreadsheetExporter) formatHeader(ctx context.Context, svc *sheets.Service, spreadsheetID string, numCols int) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId: 0, StartRowIndex: 0, EndRowIndex: 1,
						StartColumnIndex: 0, EndColumnIndex: int64(numCols),
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							TextFormat:      &sheets.TextFormat{Bold: true},
							BackgroundColor: &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
						},
					},
					Fields: "userEnteredFormat(textFormat,backgroundColor)",
				},
			},
			{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId:        0,
						GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			},
		},
	}
	_, err := svc.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	return err
}

func spreadsheetTitle(meta map[string]string) string {
	source := meta["source_domain"]
	if source == "" {
		source = "scraped_data"
	}
	return fmt.Sprintf("IWSA_%s_%s", source, time.Now().UTC().Format("2006-01-02_15-04-05"))
}
