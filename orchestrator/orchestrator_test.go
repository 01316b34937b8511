package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/use-agent/iwsa/circuitbreaker"
	"github.com/use-agent/iwsa/llm"
	"github.com/use-agent/iwsa/ratelimit"
)

type fakeBackend struct {
	name      string
	priority  int
	available bool
	responses []llm.Response
	errs      []error
	calls     int
	retries   int // in-call retries after a failed attempt, as a real backend's Generate makes
}

func (f *fakeBackend) Name() string  { return f.name }
func (f *fakeBackend) Priority() int { return f.priority }
func (f *fakeBackend) IsAvailable() bool { return f.available }
func (f *fakeBackend) EstimateCost(llm.Request) float64 { return 0 }

func (f *fakeBackend) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	resp, err := f.attempt()
	for r := 0; err != nil && r < f.retries; r++ {
		resp, err = f.attempt()
	}
	return resp, err
}

func (f *fakeBackend) attempt() (llm.Response, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return llm.Response{}, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return llm.Response{Success: true, Content: `{"selectors":["a"],"extraction_logic":"x","confidence_score":0.9}`}, nil
}

const validJSON = `{"selectors":["a"],"extraction_logic":"x","confidence_score":0.9}`

func TestZeroBackendsReturnsFailedStrategyNoIO(t *testing.T) {
	o := New(nil, circuitbreaker.DefaultConfig(), nil, 10)
	start := time.Now()
	strat, err := o.GenerateStrategy(context.Background(), "<html/>", "https://x", "intent", nil)
	assert.NoError(t, err)
	assert.False(t, strat.Success)
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

func TestUnavailableBackendNeverCalled(t *testing.T) {
	unavailable := &fakeBackend{name: "local", priority: 0, available: false}
	working := &fakeBackend{name: "remote", priority: 1, available: true,
		responses: []llm.Response{{Success: true, Content: validJSON}}}

	o := New([]llm.Backend{unavailable, working}, circuitbreaker.DefaultConfig(), nil, 100)
	strat, err := o.GenerateStrategy(context.Background(), "<html/>", "https://x", "intent", nil)
	assert.NoError(t, err)
	assert.True(t, strat.Success)
	assert.Equal(t, "remote", strat.Provenance.BackendName)
	assert.Equal(t, 0, unavailable.calls)
}

func TestFailoverAfterBackendError(t *testing.T) {
	a := &fakeBackend{name: "A", priority: 0, available: true, retries: 2,
		errs: []error{errors.New("HTTP 500"), errors.New("HTTP 500")},
		responses: []llm.Response{{}, {}, {Success: true, Content: validJSON}}}
	b := &fakeBackend{name: "B", priority: 1, available: true}

	o := New([]llm.Backend{a, b}, circuitbreaker.Config{FailureThreshold: 5, RecoveryTimeout: time.Minute}, nil, 1000)
	strat, err := o.GenerateStrategy(context.Background(), "<html/>", "https://x", "intent", nil)
	assert.NoError(t, err)
	assert.True(t, strat.Success)
	assert.Equal(t, "A", strat.Provenance.BackendName)
	assert.Equal(t, 0, b.calls)
}

func TestParseFailureDoesNotTripBreaker(t *testing.T) {
	a := &fakeBackend{name: "A", priority: 0, available: true,
		responses: []llm.Response{{Success: true, Content: "not json at all"}}}

	o := New([]llm.Backend{a}, circuitbreaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Minute}, nil, 1000)
	strat, err := o.GenerateStrategy(context.Background(), "<html/>", "https://x", "intent", nil)
	assert.NoError(t, err)
	assert.False(t, strat.Success)
	// A single soft (parse) failure must not trip a breaker with threshold 1.
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, circuitbreaker.Closed, o.entries[0].breaker.State())
}

func TestCircuitTripSkipsBackendWithoutCallingIt(t *testing.T) {
	a := &fakeBackend{name: "A", priority: 0, available: true,
		errs: []error{errors.New("boom")}}
	b := &fakeBackend{name: "B", priority: 1, available: true,
		responses: []llm.Response{{Success: true, Content: validJSON}}}

	o := New([]llm.Backend{a, b}, circuitbreaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Hour}, nil, 1000)

	// First call trips A's breaker and falls through to B.
	_, _ = o.GenerateStrategy(context.Background(), "<html/>", "https://x", "intent", nil)
	callsBefore := a.calls

	// Second call: A's breaker is OPEN, must not be invoked again.
	strat, err := o.GenerateStrategy(context.Background(), "<html/>", "https://x", "intent", nil)
	assert.NoError(t, err)
	assert.True(t, strat.Success)
	assert.Equal(t, "B", strat.Provenance.BackendName)
	assert.Equal(t, callsBefore, a.calls)
}

func TestHTMLTruncatedBeyondMax(t *testing.T) {
	big := make([]byte, MaxHTML+1000)
	for i := range big {
		big[i] = 'x'
	}
	truncated := TruncateHTML(string(big))
	assert.Contains(t, truncated, "[truncated]")
	assert.Less(t, len(truncated), len(big))
}

func TestRegistryIntegration(t *testing.T) {
	reg := ratelimit.NewRegistry(1)
	defer reg.Stop()
	a := &fakeBackend{name: "A", priority: 0, available: true,
		responses: []llm.Response{{Success: true, Content: validJSON}}}
	o := New([]llm.Backend{a}, circuitbreaker.DefaultConfig(), reg, 1000)
	strat, err := o.GenerateStrategy(context.Background(), "<html/>", "https://x", "intent", nil)
	assert.NoError(t, err)
	assert.True(t, strat.Success)
}
