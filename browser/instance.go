// Package browser implements the browser-instance pool (spec §3/§4.5): a
// pool of whole headless-browser processes, each with its own context and
// page, handed out exclusively to one caller at a time.
package browser

import (
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
)

// Instance is one pooled browser: a live process, one context, one page.
// It is exclusively owned by at most one caller between Acquire and Release.
type Instance struct {
	ID        int64
	Browser   *rod.Browser
	Page      *rod.Page
	UserAgent string

	createdAt time.Time
	lastUsed  atomic.Int64 // unix nano
	requests  atomic.Int64
	inUse     atomic.Bool
}

// CreatedAt returns the instance's creation time.
func (h *Instance) CreatedAt() time.Time { return h.createdAt }

// LastUsed returns the last time this instance was released back to the pool.
func (h *Instance) LastUsed() time.Time { return time.Unix(0, h.lastUsed.Load()) }

// RequestCount returns how many requests this instance has served.
func (h *Instance) RequestCount() int64 { return h.requests.Load() }

// touch records one more request served and refreshes LastUsed.
func (h *Instance) touch() {
	h.requests.Add(1)
	h.lastUsed.Store(time.Now().UnixNano())
}

// expired reports whether h has exceeded its request or age budget (spec §4.5).
func (h *Instance) expired(maxPerInstance int, maxAge time.Duration) bool {
	if maxPerInstance > 0 && h.requests.Load() >= int64(maxPerInstance) {
		return true
	}
	if maxAge > 0 && time.Since(h.createdAt) >= maxAge {
		return true
	}
	return false
}

func (h *Instance) close() {
	if h.Page != nil {
		_ = h.Page.Close()
	}
	if h.Browser != nil {
		h.Browser.MustClose()
	}
}
