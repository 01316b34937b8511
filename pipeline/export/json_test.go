package export

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/use-agent/iwsa/pipeline"
)

func TestJSONExporterWrapsDataInEnvelope(t *testing.T) {
	dir := t.TempDir()
	e := &JSONExporter{Dir: dir}

	rows := []pipeline.Row{{"title": "Widget"}}
	result, err := e.Export(context.Background(), rows, map[string]string{"source_domain": "example.com"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	content, err := os.ReadFile(result.Destination)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}

	var envelope jsonEnvelope
	if err := json.Unmarshal(content, &envelope); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.Metadata["source_domain"] != "example.com" {
		t.Errorf("unexpected envelope: %+v", envelope)
	}
}
