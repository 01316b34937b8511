package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/use-agent/iwsa/pipeline"
)

// JSONExporter writes rows wrapped in a {"metadata": ..., "data": ...}
// envelope, matching the original exporter's JSON shape.
type JSONExporter struct {
	Dir string
}

func (e *JSONExporter) Name() string { return "json" }

type jsonEnvelope struct {
	Metadata map[string]any   `json:"metadata"`
	Data     []pipeline.Row   `json:"data"`
}

func (e *JSONExporter) Export(_ context.Context, rows []pipeline.Row, meta map[string]string) (pipeline.ExportResult, error) {
	clean := prepareRows(rows)
	if len(clean) == 0 {
		return pipeline.ExportResult{}, fmt.Errorf("no data to export")
	}

	filename := generateFilename(meta, "json")
	dir := e.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pipeline.ExportResult{}, fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, filename)

	envelope := jsonEnvelope{
		Metadata: map[string]any{
			"source_url":    meta["source_url"],
			"source_domain": meta["source_domain"],
			"exported_at":   time.Now().UTC().Format(time.RFC3339),
			"record_count":  len(clean),
		},
		Data: clean,
	}

	encoded, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return pipeline.ExportResult{}, fmt.Errorf("marshal json export: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return pipeline.ExportResult{}, fmt.Errorf("write json file: %w", err)
	}

	return pipeline.ExportResult{
		Success:         true,
		Destination:     path,
		RecordsExported: len(clean),
	}, nil
}
