// Package pipeline implements C3: the row-cleaning/validation/enrichment
// chain and the concurrent exporter fan-out (spec §4.9).
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Row is one extracted record. Reserved metadata keys are underscore-prefixed
// and pass through every stage untouched unless a stage's own contract says
// otherwise (the enricher, notably, adds its own underscore-prefixed keys).
type Row map[string]any

// Stats reports the per-stage counters each pipeline stage contributes
// ("Contract across stages").
type Stats struct {
	Total         int
	Processed     int
	Failed        int
	Modifications int
	Time          time.Duration
	BoundedErrors []string
}

const maxStageErrors = 10

func (s *Stats) addError(msg string) {
	s.BoundedErrors = append(s.BoundedErrors, msg)
	if len(s.BoundedErrors) > maxStageErrors {
		s.BoundedErrors = s.BoundedErrors[len(s.BoundedErrors)-maxStageErrors:]
	}
}

// ExportRequest names one destination format for the fan-out.
type ExportRequest struct {
	Format string // "csv" | "json" | "excel" | "spreadsheet"
}

// ExportResult is one exporter adapter's outcome.
type ExportResult struct {
	Format          string
	Success         bool
	Destination     string
	RecordsExported int
	Time            time.Duration
	Error           string
}

// Exporter is the common adapter contract every format-specific sink implements.
type Exporter interface {
	Name() string
	Export(ctx context.Context, rows []Row, meta map[string]string) (ExportResult, error)
}

// Meta carries the run's provenance, threaded through cleaning, enrichment,
// and into exporter filename/title generation.
type Meta struct {
	SourceURL    string
	SourceDomain string
}

// PipelineResult is ProcessAndExport's output (spec §4.9).
type PipelineResult struct {
	Success             bool
	Rows                []Row
	TotalOutputRecords  int
	CleaningStats       Stats
	ValidationStats     Stats
	EnrichmentStats     Stats
	ExportResults       []ExportResult
}

// Pipeline wires the three stateless row stages to a set of registered exporters.
type Pipeline struct {
	exporters map[string]Exporter
}

// New builds a Pipeline from the given exporters, keyed by their own Name().
func New(exporters ...Exporter) *Pipeline {
	p := &Pipeline{exporters: make(map[string]Exporter, len(exporters))}
	for _, e := range exporters {
		p.exporters[e.Name()] = e
	}
	return p
}

// ProcessAndExport runs rows through clean → validate → enrich, then fans out
// to every requested exporter concurrently (spec §4.9).
func (p *Pipeline) ProcessAndExport(ctx context.Context, rows []Row, formats []string, meta Meta) PipelineResult {
	cleaned, cleanStats := Clean(rows)
	validated, validateStats := Validate(cleaned)
	enriched, enrichStats := Enrich(validated, meta)

	result := PipelineResult{
		Rows:                enriched,
		TotalOutputRecords:  len(enriched),
		CleaningStats:       cleanStats,
		ValidationStats:     validateStats,
		EnrichmentStats:     enrichStats,
	}

	metaMap := map[string]string{
		"source_url":    meta.SourceURL,
		"source_domain": meta.SourceDomain,
	}

	result.ExportResults = p.exportAll(ctx, enriched, formats, metaMap)

	anyExportSucceeded := false
	for _, r := range result.ExportResults {
		if r.Success {
			anyExportSucceeded = true
			break
		}
	}
	result.Success = len(enriched) > 0 && anyExportSucceeded
	return result
}

// exportAll runs every requested exporter concurrently and collects results
// in request order (spec §4.9's "Export fan-out").
func (p *Pipeline) exportAll(ctx context.Context, rows []Row, formats []string, meta map[string]string) []ExportResult {
	results := make([]ExportResult, len(formats))
	var wg sync.WaitGroup
	for i, format := range formats {
		exporter, ok := p.exporters[format]
		if !ok {
			results[i] = ExportResult{Format: format, Success: false, Error: "no exporter registered for format"}
			continue
		}
		wg.Add(1)
		go func(i int, exporter Exporter, format string) {
			defer wg.Done()
			start := time.Now()
			res, err := exporter.Export(ctx, rows, meta)
			res.Time = time.Since(start)
			res.Format = format
			if err != nil {
				res.Success = false
				res.Error = err.Error()
				slog.Warn("exporter failed", "format", format, "error", err)
			}
			results[i] = res
		}(i, exporter, format)
	}
	wg.Wait()
	return results
}
