package llm

import (
	"context"
	"os"
	"time"
)

// LocalBackend models in-process inference over a serialized model file.
// Availability requires the model file to exist; this package does not carry
// an inference runtime (that is the external "reconnaissance/inference
// runtime" collaborator referenced in spec §1's out-of-scope list), so when
// the file is present but no real runtime is wired in, Generate returns a
// deterministic stub strategy marked with reduced confidence — the
// "development mode" behavior spec §4.3 calls for explicitly.
type LocalBackend struct {
	ModelPath string
	Threads   int
	priority  int
}

// NewLocalBackend constructs the local backend. priority should be the
// lowest (most-preferred) value among configured backends.
func NewLocalBackend(modelPath string, threads int, priority int) *LocalBackend {
	return &LocalBackend{ModelPath: modelPath, Threads: threads, priority: priority}
}

func (b *LocalBackend) Name() string     { return "local" }
func (b *LocalBackend) Priority() int    { return b.priority }
func (b *LocalBackend) EstimateCost(Request) float64 { return 0 }

// IsAvailable reports whether the model file exists. A missing file means
// the backend is unavailable, not an error, per spec §4.3.
func (b *LocalBackend) IsAvailable() bool {
	if b.ModelPath == "" {
		return false
	}
	info, err := os.Stat(b.ModelPath)
	return err == nil && !info.IsDir()
}

// Generate returns a deterministic stub strategy. Real local-inference
// integration is an external collaborator out of scope for this module
// (spec §1); this stub keeps the backend usefully testable in development
// without one.
func (b *LocalBackend) Generate(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	content := `{
  "selectors": ["body"],
  "extraction_logic": "fallback whole-body extraction (local stub model)",
  "pagination_strategy": {"type": "none", "selectors": [], "logic": ""},
  "filters": [],
  "error_handling": ["retry once on empty extraction"],
  "confidence_score": 0.35,
  "reasoning": "local inference runtime not wired; returning a conservative stub strategy"
}`

	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}

	return Response{
		Content:     content,
		TokensUsed:  0,
		Cost:        0,
		BackendName: b.Name(),
		ModelName:   "local-stub",
		Elapsed:     time.Since(start).Milliseconds(),
		Success:     true,
	}, nil
}
