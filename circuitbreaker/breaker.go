// Package circuitbreaker implements a tri-state (closed/open/half-open)
// circuit breaker for wrapping fallible calls to LLM backends.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State is one of the three breaker states.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned by Call when the breaker is OPEN and the recovery
// timeout has not yet elapsed. It must not be treated as a backend failure
// by callers tallying error rates — the call was never attempted.
var ErrOpen = errors.New("circuit breaker: open")

// Config controls the trip/recovery thresholds.
type Config struct {
	// FailureThreshold is the number of consecutive failures that trips the
	// breaker from CLOSED to OPEN.
	FailureThreshold int
	// RecoveryTimeout is how long the breaker stays OPEN before allowing one
	// HALF-OPEN trial call.
	RecoveryTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
	}
}

// Breaker wraps fallible calls for a single logical backend.
type Breaker struct {
	name string
	cfg  Config

	mu       sync.Mutex
	state    State
	failures int
	openAt   time.Time
}

// New creates a breaker for a named backend.
func New(name string, cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = DefaultConfig().RecoveryTimeout
	}
	return &Breaker{name: name, cfg: cfg, state: Closed}
}

// Name returns the backend name this breaker guards.
func (b *Breaker) Name() string { return b.name }

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

// stateLocked promotes OPEN to HALF-OPEN once the recovery timeout has
// elapsed. Callers must hold b.mu.
func (b *Breaker) stateLocked() State {
	if b.state == Open && time.Since(b.openAt) >= b.cfg.RecoveryTimeout {
		return HalfOpen
	}
	return b.state
}

// Allow reports whether a call may proceed right now. The first caller after
// the recovery timeout has elapsed commits b.state from OPEN to HALF-OPEN and
// is admitted as the single trial; later callers are refused until
// RecordSuccess/RecordFailure settles the trial, so a second caller cannot
// sneak in concurrently.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case Closed:
		return true
	case HalfOpen:
		if b.state == Open {
			// First caller after recovery timeout: commit the HALF-OPEN
			// transition and admit exactly one trial.
			b.state = HalfOpen
			return true
		}
		// Already HALF-OPEN and a trial is presumably in flight; refuse
		// further concurrent trials until it resolves.
		return false
	default: // Open, recovery timeout not yet elapsed
		return false
	}
}

// RecordSuccess reports a successful call outcome.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.state = Closed
}

// RecordFailure reports a failed call outcome, tripping the breaker if the
// configured threshold is reached.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == HalfOpen {
		b.state = Open
		b.openAt = time.Now()
		return
	}

	b.failures++
	if b.failures >= b.cfg.FailureThreshold {
		b.state = Open
		b.openAt = time.Now()
	}
}

// Reset forces the breaker back to CLOSED with a zeroed failure count.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
}

// Call executes fn if the breaker permits it, and records the outcome.
// Returns ErrOpen without invoking fn when the breaker is tripped.
func (b *Breaker) Call(fn func() error) error {
	if !b.Allow() {
		return ErrOpen
	}
	err := fn()
	if err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}
