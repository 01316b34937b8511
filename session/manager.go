// Package session implements the per-site session manager (spec §4.7): it
// saves and restores cookies, storage, and page history onto a live browser
// page so a subsequent visit can resume where a prior one left off.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// ErrNotFound is returned when a session id has no live entry.
var ErrNotFound = errors.New("session: not found")

// ErrInUse is returned when a session could not be torn down because a
// caller still holds an active reference to it.
var ErrInUse = errors.New("session: in use")

// maxVisitedPages bounds the visited-page list so a long crawl never grows
// a session's memory footprint without limit.
const maxVisitedPages = 500

// Session carries everything needed to resume a browsing context: cookies,
// storage snapshots, and page history. It is reference-counted so a session
// mid-eviction is never torn down while an executor still holds it.
type Session struct {
	ID      string
	BaseURL string

	cookies        []*proto.NetworkCookieParam
	localStorage   map[string]string
	sessionStorage map[string]string
	currentPage    string
	visited        []string

	createdAt time.Time
	lastUsed  atomic.Int64
	requests  atomic.Int64

	mu       sync.Mutex
	refCount atomic.Int32
	closing  atomic.Bool
}

func newSession(id, baseURL string) *Session {
	s := &Session{
		ID:             id,
		BaseURL:        baseURL,
		localStorage:   make(map[string]string),
		sessionStorage: make(map[string]string),
		currentPage:    baseURL,
		createdAt:      time.Now(),
	}
	s.lastUsed.Store(time.Now().UnixNano())
	return s
}

// Touch refreshes the session's last-activity time.
func (s *Session) Touch() { s.lastUsed.Store(time.Now().UnixNano()) }

// LastUsed returns the last-activity time.
func (s *Session) LastUsed() time.Time { return time.Unix(0, s.lastUsed.Load()) }

// RequestCount returns how many requests this session has served.
func (s *Session) RequestCount() int64 { return s.requests.Load() }

// Acquire increments the reference count, refusing if the session is
// closing. Callers must pair a successful Acquire with Release.
func (s *Session) Acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing.Load() {
		return false
	}
	s.refCount.Add(1)
	return true
}

// Release decrements the reference count.
func (s *Session) Release() {
	if s.refCount.Add(-1) < 0 {
		s.refCount.Store(0)
	}
}

func (s *Session) waitForReferences(timeout time.Duration) bool {
	if s.refCount.Load() <= 0 {
		return true
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for time.Now().Before(deadline) {
		<-ticker.C
		if s.refCount.Load() <= 0 {
			return true
		}
	}
	return s.refCount.Load() <= 0
}

// Config controls eviction policy (spec §4.7 "Eviction").
type Config struct {
	MaxSessions     int           // default: 10
	MaxAge          time.Duration // default: 1h
	MaxIdle         time.Duration // default: 30m
	CleanupInterval time.Duration // default: 5m
}

// DefaultConfig returns the standard session eviction defaults.
func DefaultConfig() Config {
	return Config{MaxSessions: 10, MaxAge: time.Hour, MaxIdle: 30 * time.Minute, CleanupInterval: 5 * time.Minute}
}

// Manager owns the live session table and its background eviction sweep.
type Manager struct {
	cfg Config

	mu       sync.RWMutex
	sessions map[string]*Session

	stopped  chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewManager starts a manager with a background eviction sweep.
func NewManager(cfg Config) *Manager {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 10
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = time.Hour
	}
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = 30 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	m := &Manager{cfg: cfg, sessions: make(map[string]*Session), stopped: make(chan struct{})}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.cleanupLoop()
	}()
	return m
}

// Create opens a new session for url, evicting expired or excess sessions
// first (spec §4.7 "Eviction"). A supplied id is used verbatim; an empty id
// is assigned one derived from the creation time and current table size.
func (m *Manager) Create(ctx context.Context, url string, id string) (*Session, error) {
	m.evictExpiredLocked()

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.cfg.MaxSessions {
		m.evictLRULocked()
	}
	if id == "" {
		id = fmt.Sprintf("sess-%d-%d", time.Now().UnixNano(), len(m.sessions))
	}
	if _, exists := m.sessions[id]; exists {
		return nil, fmt.Errorf("session: id %q already exists", id)
	}

	s := newSession(id, url)
	m.sessions[id] = s
	return s, nil
}

// Get looks up a live, non-closing session and touches its activity clock.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.closing.Load() {
		return nil, ErrNotFound
	}
	s.Touch()
	return s, nil
}

// Save reads cookies from page and storage keys from the page's localStorage
// and sessionStorage, updates activity/request bookkeeping, and appends the
// current URL to the visited list (deduplicated) — spec §4.7.
func (m *Manager) Save(ctx context.Context, id string, page *rod.Page) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}

	cookies, err := page.Cookies(nil)
	if err != nil {
		return fmt.Errorf("session: read cookies: %w", err)
	}
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}

	local, _ := readStorage(page, "localStorage")
	sessionVals, _ := readStorage(page, "sessionStorage")

	current := ""
	if info, err := page.Info(); err == nil {
		current = info.URL
	}

	s.mu.Lock()
	s.cookies = params
	s.localStorage = local
	s.sessionStorage = sessionVals
	if current != "" {
		s.currentPage = current
		appendVisited(&s.visited, current)
	}
	s.mu.Unlock()

	s.requests.Add(1)
	s.Touch()
	return nil
}

// Restore replays a saved session's cookies and storage onto page: add
// cookies, navigate to the session's base URL, write storage via scripted
// assignment, then navigate to the last current page if it differs — spec
// §4.7. Restoring into a fresh page is idempotent with the preceding Save.
func (m *Manager) Restore(ctx context.Context, id string, page *rod.Page) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	cookies := append([]*proto.NetworkCookieParam(nil), s.cookies...)
	local := cloneMap(s.localStorage)
	sess := cloneMap(s.sessionStorage)
	base := s.BaseURL
	current := s.currentPage
	s.mu.Unlock()

	if len(cookies) > 0 {
		if err := page.SetCookies(cookies); err != nil {
			return fmt.Errorf("session: set cookies: %w", err)
		}
	}

	if base != "" {
		if err := page.Navigate(base); err != nil {
			return fmt.Errorf("session: restore navigate to base: %w", err)
		}
		page.MustWaitLoad()
	}

	if err := writeStorage(page, "localStorage", local); err != nil {
		slog.Warn("session: failed to restore localStorage", "id", id, "error", err)
	}
	if err := writeStorage(page, "sessionStorage", sess); err != nil {
		slog.Warn("session: failed to restore sessionStorage", "id", id, "error", err)
	}

	if current != "" && current != base {
		if err := page.Navigate(current); err != nil {
			return fmt.Errorf("session: restore navigate to current page: %w", err)
		}
		page.MustWaitLoad()
	}

	s.Touch()
	return nil
}

// Rotate creates a fresh session for url, transferring only non-HTTP-only
// cookies from old_id, then discards the old session — spec §4.7. HTTP-only
// cookies never survive a rotation.
func (m *Manager) Rotate(ctx context.Context, oldID, url string) (*Session, error) {
	old, err := m.Get(oldID)
	if err != nil {
		return nil, err
	}

	next, err := m.Create(ctx, url, "")
	if err != nil {
		return nil, err
	}

	old.mu.Lock()
	transferable := make([]*proto.NetworkCookieParam, 0, len(old.cookies))
	for _, c := range old.cookies {
		if !c.HTTPOnly {
			transferable = append(transferable, c)
		}
	}
	old.mu.Unlock()

	next.mu.Lock()
	next.cookies = transferable
	next.mu.Unlock()

	_ = m.Cleanup(oldID)
	return next, nil
}

// Cleanup destroys a session, waiting briefly for in-flight references to
// drain first. Returns ErrInUse (without destroying it) if they don't.
func (m *Manager) Cleanup(id string) error {
	m.mu.Lock()
	s, exists := m.sessions[id]
	if exists {
		s.closing.Store(true)
	}
	m.mu.Unlock()
	if !exists {
		return ErrNotFound
	}

	if !s.waitForReferences(5 * time.Second) {
		return ErrInUse
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown stops the eviction sweep and clears the session table.
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() { close(m.stopped) })
	m.wg.Wait()
	m.mu.Lock()
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
}

func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopped:
			return
		case <-ticker.C:
			m.evictExpiredLocked()
		}
	}
}

// evictExpiredLocked drops sessions older than MaxAge or idle past MaxIdle.
func (m *Manager) evictExpiredLocked() {
	now := time.Now()
	m.mu.Lock()
	var expired []string
	for id, s := range m.sessions {
		if now.Sub(s.createdAt) > m.cfg.MaxAge || now.Sub(s.LastUsed()) > m.cfg.MaxIdle {
			expired = append(expired, id)
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		if err := m.Cleanup(id); err != nil && !errors.Is(err, ErrNotFound) {
			slog.Debug("session: expired cleanup deferred", "id", id, "error", err)
		}
	}
}

// evictLRULocked drops the least-recently-used session that no caller holds
// a reference to. Caller holds m.mu.
func (m *Manager) evictLRULocked() {
	var lruID string
	var lruTime time.Time
	for id, s := range m.sessions {
		if s.refCount.Load() > 0 {
			continue
		}
		t := s.LastUsed()
		if lruID == "" || t.Before(lruTime) {
			lruID, lruTime = id, t
		}
	}
	if lruID == "" {
		return
	}
	delete(m.sessions, lruID)
}

func appendVisited(list *[]string, url string) {
	for _, u := range *list {
		if u == url {
			return
		}
	}
	*list = append(*list, url)
	if len(*list) > maxVisitedPages {
		*list = (*list)[len(*list)-maxVisitedPages:]
	}
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
