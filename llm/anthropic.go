package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicBackend is the "remote chat" backend variant (spec §4.3): an
// HTTP POST to a vendor endpoint with bearer auth, retried on transient
// transport errors with capped exponential backoff.
type AnthropicBackend struct {
	client      anthropic.Client
	model       string
	apiKey      string
	priority    int
	retryMax    int
	retryDelay  time.Duration
}

// NewAnthropicBackend constructs the backend. An empty apiKey makes the
// backend permanently unavailable.
func NewAnthropicBackend(apiKey, model string, priority, retryMax int, retryDelay time.Duration) *AnthropicBackend {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if retryMax <= 0 {
		retryMax = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &AnthropicBackend{
		client:     anthropic.NewClient(opts...),
		model:      model,
		apiKey:     apiKey,
		priority:   priority,
		retryMax:   retryMax,
		retryDelay: retryDelay,
	}
}

func (b *AnthropicBackend) Name() string  { return "anthropic" }
func (b *AnthropicBackend) Priority() int { return b.priority }

func (b *AnthropicBackend) IsAvailable() bool { return b.apiKey != "" }

// EstimateCost is a cheap arithmetic estimate; token counts here are rough
// (4 chars/token) since a full tokenizer is out of scope.
func (b *AnthropicBackend) EstimateCost(req Request) float64 {
	chars := len(req.SystemPrompt)
	for _, m := range req.Messages {
		chars += len(m.Content)
	}
	estTokens := float64(chars) / 4
	const perMillionInputUSD = 3.0
	return estTokens / 1_000_000 * perMillionInputUSD
}

func (b *AnthropicBackend) Generate(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(maxOr(req.MaxTokens, 2048)),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	var lastErr error
	delay := b.retryDelay
	for attempt := 0; attempt <= b.retryMax; attempt++ {
		msg, err := b.client.Messages.New(ctx, params)
		if err == nil {
			content := firstTextBlock(msg)
			return Response{
				Content:     content,
				TokensUsed:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
				Cost:        b.EstimateCost(req),
				BackendName: b.Name(),
				ModelName:   b.model,
				Elapsed:     time.Since(start).Milliseconds(),
				Success:     true,
			}, nil
		}

		lastErr = err
		if !isRetryableAnthropicError(err) {
			break
		}
		if attempt == b.retryMax {
			break
		}
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > 60*time.Second {
			delay = 60 * time.Second
		}
	}

	return Response{
		BackendName:  b.Name(),
		ModelName:    b.model,
		Elapsed:      time.Since(start).Milliseconds(),
		Success:      false,
		ErrorMessage: lastErr.Error(),
	}, lastErr
}

func firstTextBlock(msg *anthropic.Message) string {
	if msg == nil {
		return ""
	}
	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text
		}
	}
	return ""
}

func isRetryableAnthropicError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "eof")
}

func maxOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
