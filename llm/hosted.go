package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/use-agent/iwsa/models"
)

// HostedBackend is the "remote hosted-model" backend variant (spec §4.3): an
// OpenAI-wire-compatible chat-completions endpoint at a configurable base
// URL, so it doubles as the hosted tier for any OpenAI-compatible provider.
// It reuses the strategy-schema Client below it and adds model-cold-start
// handling (longer retry delay) on top of the generic transient-error retry.
type HostedBackend struct {
	client     *Client
	params     ExtractParams
	priority   int
	retryMax   int
	retryDelay time.Duration
	coldStartDelay time.Duration
}

// NewHostedBackend constructs the backend. An empty APIKey is allowed — the
// spec notes a costless tier where the API key is optional.
func NewHostedBackend(httpClient *http.Client, params ExtractParams, priority, retryMax int, retryDelay time.Duration) *HostedBackend {
	if retryMax <= 0 {
		retryMax = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &HostedBackend{
		client:         NewClient(httpClient),
		params:         params,
		priority:       priority,
		retryMax:       retryMax,
		retryDelay:     retryDelay,
		coldStartDelay: 10 * time.Second,
	}
}

func (b *HostedBackend) Name() string  { return "hosted" }
func (b *HostedBackend) Priority() int { return b.priority }

func (b *HostedBackend) IsAvailable() bool { return b.params.BaseURL != "" }

func (b *HostedBackend) EstimateCost(req Request) float64 {
	if b.params.APIKey == "" {
		return 0
	}
	chars := len(req.SystemPrompt)
	for _, m := range req.Messages {
		chars += len(m.Content)
	}
	const perMillionUSD = 0.5
	return float64(chars) / 4 / 1_000_000 * perMillionUSD
}

var strategySchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "selectors": {"type": "array", "items": {"type": "string"}},
    "extraction_logic": {"type": "string"},
    "pagination_strategy": {"type": "object"},
    "filters": {"type": "array"},
    "error_handling": {"type": "array", "items": {"type": "string"}},
    "confidence_score": {"type": "number"},
    "reasoning": {"type": "string"}
  },
  "required": ["selectors", "extraction_logic", "confidence_score"]
}`)

func (b *HostedBackend) Generate(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	var userContent strings.Builder
	for _, m := range req.Messages {
		if m.Role == RoleUser {
			userContent.WriteString(m.Content)
		}
	}

	delay := b.retryDelay
	var lastErr error
	for attempt := 0; attempt <= b.retryMax; attempt++ {
		result, err := b.client.Extract(ctx, userContent.String(), strategySchema, b.params)
		if err == nil {
			return Response{
				Content:     string(result.Data),
				TokensUsed:  result.Usage.TotalTokens,
				Cost:        b.EstimateCost(req),
				BackendName: b.Name(),
				ModelName:   b.params.Model,
				Elapsed:     time.Since(start).Milliseconds(),
				Success:     true,
			}, nil
		}

		lastErr = err
		if attempt == b.retryMax {
			break
		}

		wait := delay
		if isColdStartError(err) {
			wait = b.coldStartDelay
		}
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
		if delay > 60*time.Second {
			delay = 60 * time.Second
		}

		if !isRetryableHostedError(err) {
			break
		}
	}

	return Response{
		BackendName:  b.Name(),
		ModelName:    b.params.Model,
		Elapsed:      time.Since(start).Milliseconds(),
		Success:      false,
		ErrorMessage: lastErr.Error(),
	}, lastErr
}

func isColdStartError(err error) bool {
	if se, ok := err.(*models.ScrapeError); ok {
		return strings.Contains(strings.ToLower(se.Message), "cold") ||
			strings.Contains(strings.ToLower(se.Message), "loading")
	}
	return strings.Contains(strings.ToLower(err.Error()), "loading")
}

func isRetryableHostedError(err error) bool {
	if se, ok := err.(*models.ScrapeError); ok {
		return se.Code == models.ErrCodeLLMRateLimited || se.Code == models.ErrCodeLLMFailure
	}
	return true
}
