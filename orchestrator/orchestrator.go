package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/use-agent/iwsa/circuitbreaker"
	"github.com/use-agent/iwsa/llm"
	"github.com/use-agent/iwsa/ratelimit"
)

const systemPrompt = `You are an expert web scraping analyst. Analyze the given HTML and return a JSON object with exactly this shape:
{
  "selectors": [string, ...],
  "extraction_logic": string,
  "pagination_strategy": {"type": "numbered"|"infinite_scroll"|"load_more"|"none", "selectors": [string, ...], "logic": string},
  "filters": [{"name": string, "selector": string, "type": "dropdown"|"input"|"checkbox", "default_value": string}],
  "error_handling": [string, ...],
  "confidence_score": number between 0 and 1,
  "reasoning": string
}
Return ONLY the JSON object, no surrounding prose.`

type backendEntry struct {
	backend llm.Backend
	breaker *circuitbreaker.Breaker
}

// Orchestrator is C1: an ordered-priority fanout across LLM backends.
type Orchestrator struct {
	entries        []*backendEntry
	limiter        *ratelimit.Registry
	backendRateSec float64
}

// New builds an orchestrator over backends, sorted by ascending Priority()
// (ties keep the input's configuration order, per spec §4.4).
func New(backends []llm.Backend, breakerCfg circuitbreaker.Config, limiter *ratelimit.Registry, backendRateSec float64) *Orchestrator {
	entries := make([]*backendEntry, len(backends))
	for i, b := range backends {
		entries[i] = &backendEntry{backend: b, breaker: circuitbreaker.New(b.Name(), breakerCfg)}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].backend.Priority() < entries[j].backend.Priority()
	})
	if backendRateSec <= 0 {
		backendRateSec = 2
	}
	return &Orchestrator{entries: entries, limiter: limiter, backendRateSec: backendRateSec}
}

// GenerateStrategy builds one request common to all backends and calls them
// sequentially in priority order until one yields a valid strategy (spec §4.4).
func (o *Orchestrator) GenerateStrategy(ctx context.Context, html, url, intent string, fields []string) (ScrapingStrategy, error) {
	req := buildRequest(html, url, intent, fields, systemPrompt)
	return o.run(ctx, req)
}

// GenerateRecoveryStrategy is the executor's one-shot error-context call
// (spec §4.8 step 4 / §9's open-question decision): same backend loop, an
// alternate user prompt, one JSON contract.
func (o *Orchestrator) GenerateRecoveryStrategy(ctx context.Context, url string, failedSelectors []string, pageStateDescriptor string) (ScrapingStrategy, error) {
	userMsg := fmt.Sprintf(`Extraction failed on this page. Suggest updated selectors.

URL: %s
Failed selectors: %v
Page state: %s

Return the same JSON strategy shape as before with corrected selectors.`, url, failedSelectors, pageStateDescriptor)

	req := llm.Request{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: userMsg}},
		MaxTokens:    2048,
		Temperature:  0.1,
	}
	return o.run(ctx, req)
}

func (o *Orchestrator) run(ctx context.Context, req llm.Request) (ScrapingStrategy, error) {
	if len(o.entries) == 0 {
		return ScrapingStrategy{Success: false, FailureReason: "no backends configured"}, nil
	}

	for _, e := range o.entries {
		if !e.backend.IsAvailable() {
			continue // backend-unavailable: no state change
		}
		if !e.breaker.Allow() {
			continue // circuit OPEN: do not attempt
		}

		if o.limiter != nil {
			if err := o.limiter.Acquire(ctx, "llm:"+e.backend.Name(), o.backendRateSec); err != nil {
				return ScrapingStrategy{}, err
			}
		}

		resp, err := e.backend.Generate(ctx, req)
		if err != nil {
			e.breaker.RecordFailure()
			continue
		}
		if !resp.Success {
			e.breaker.RecordFailure()
			continue
		}
		e.breaker.RecordSuccess()

		strat, ok := parseStrategy(resp.Content)
		if !ok {
			// parse-failure is a soft failure: try next backend. The call itself
			// succeeded (recorded above), so the breaker is not tripped.
			continue
		}
		strat.Provenance = Provenance{
			BackendName: e.backend.Name(),
			LatencyMs:   resp.Elapsed,
			Cost:        resp.Cost,
		}
		return strat, nil
	}

	return ScrapingStrategy{Success: false, FailureReason: "all backends exhausted without a valid strategy"}, nil
}

func buildRequest(html, url, intent string, fields []string, system string) llm.Request {
	userMsg := fmt.Sprintf("URL: %s\nIntent: %s\nFields: %v\n\nHTML:\n%s", url, intent, fields, TruncateHTML(html))
	return llm.Request{
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: userMsg}},
		MaxTokens:    3000,
		Temperature:  0.1,
	}
}

// BackendStatus is one backend's health-check outcome.
type BackendStatus string

const (
	StatusHealthy     BackendStatus = "healthy"
	StatusDegraded    BackendStatus = "degraded"
	StatusUnavailable BackendStatus = "unavailable"
	StatusTimeout     BackendStatus = "timeout"
	StatusError       BackendStatus = "error"
)

// HealthReport aggregates per-backend health into an overall status.
type HealthReport struct {
	Backends map[string]BackendStatus
	Overall  string // healthy | degraded | critical
}

// HealthCheck probes every available backend with a minimal request and a
// bounded timeout (spec §4.4).
func (o *Orchestrator) HealthCheck(ctx context.Context, probeTimeout time.Duration) HealthReport {
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	report := HealthReport{Backends: make(map[string]BackendStatus)}

	healthyCount, availableCount := 0, 0
	for _, e := range o.entries {
		if !e.backend.IsAvailable() {
			report.Backends[e.backend.Name()] = StatusUnavailable
			continue
		}
		availableCount++

		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		resp, err := e.backend.Generate(probeCtx, llm.Request{
			Messages:  []llm.Message{{Role: llm.RoleUser, Content: "respond with {}"}},
			MaxTokens: 16,
		})
		cancel()

		switch {
		case probeCtx.Err() != nil:
			report.Backends[e.backend.Name()] = StatusTimeout
		case err != nil || !resp.Success:
			report.Backends[e.backend.Name()] = StatusError
		default:
			report.Backends[e.backend.Name()] = StatusHealthy
			healthyCount++
		}
	}

	switch {
	case healthyCount == 0:
		report.Overall = "critical"
	case healthyCount == availableCount:
		report.Overall = "healthy"
	default:
		report.Overall = "degraded"
	}
	return report
}
