// Package llm defines the uniform LLM backend contract (spec §4.3) and its
// three concrete variants: local, remote-chat, and remote-hosted-model.
package llm

import "context"

// Role is the speaker of one message in a Request.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a Request's conversation.
type Message struct {
	Role    Role
	Content string
}

// Request is the uniform input to every backend's Generate call.
type Request struct {
	Messages     []Message
	SystemPrompt string // used by backends that separate system from user turns
	MaxTokens    int
	Temperature  float64
	Metadata     map[string]string
}

// Response is the uniform output from every backend's Generate call.
type Response struct {
	Content      string
	TokensUsed   int
	Cost         float64 // currency-neutral; 0 for local inference
	BackendName  string
	ModelName    string
	Elapsed      int64 // milliseconds
	Success      bool
	ErrorMessage string
}

// Backend unifies one LLM provider behind Generate, IsAvailable, and
// EstimateCost, per spec §4.3.
type Backend interface {
	// Name is the stable identifier used in configuration and provenance.
	Name() string
	// Priority orders backends within the orchestrator; lower is preferred.
	Priority() int
	// IsAvailable reports whether the backend is configured and usable right
	// now (e.g. local model file present and loadable, or API key set).
	IsAvailable() bool
	// EstimateCost returns a cheap arithmetic estimate for a would-be call;
	// always 0 for local inference.
	EstimateCost(req Request) float64
	// Generate issues one call and returns its result. It must itself retry
	// transient transport errors per spec §4.3/§7 before returning — the
	// orchestrator's circuit breaker sees only the final outcome.
	Generate(ctx context.Context, req Request) (Response, error)
}
