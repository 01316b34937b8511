// Package ratelimit provides per-channel token-bucket rate limiting.
//
// A "channel" is any logical pacing domain: an LLM provider name or a scrape
// target's hostname. Each channel gets its own golang.org/x/time/rate.Limiter,
// created lazily on first use and evicted after a period of inactivity.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultIdleEvictAfter = 1 * time.Hour
const defaultEvictInterval = 5 * time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Registry holds one token bucket per channel.
type Registry struct {
	mu       sync.Mutex
	channels map[string]*entry
	burst    int

	evictAfter time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewRegistry creates a registry. burst is the bucket capacity applied to
// every newly created channel; SetRate changes a channel's refill rate only,
// not its burst.
func NewRegistry(burst int) *Registry {
	if burst < 1 {
		burst = 1
	}
	r := &Registry{
		channels:   make(map[string]*entry),
		burst:      burst,
		evictAfter: defaultIdleEvictAfter,
		stop:       make(chan struct{}),
	}
	go r.evictLoop()
	return r
}

// Acquire blocks the caller until the named channel has a token available,
// then consumes one. It respects ctx cancellation.
func (r *Registry) Acquire(ctx context.Context, channel string, ratePerSec float64) error {
	lim := r.getOrCreate(channel, ratePerSec)
	return lim.Wait(ctx)
}

// SetRate atomically updates the refill rate for a channel, creating it if absent.
func (r *Registry) SetRate(channel string, ratePerSec float64) {
	r.getOrCreate(channel, ratePerSec).SetLimit(rate.Limit(ratePerSec))
}

func (r *Registry) getOrCreate(channel string, ratePerSec float64) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.channels[channel]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(ratePerSec), r.burst)}
		r.channels[channel] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

func (r *Registry) evictLoop() {
	ticker := time.NewTicker(defaultEvictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-r.evictAfter)
			r.mu.Lock()
			for ch, e := range r.channels {
				if e.lastSeen.Before(cutoff) {
					delete(r.channels, ch)
				}
			}
			r.mu.Unlock()
		}
	}
}

// Stop terminates the background eviction goroutine.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}
