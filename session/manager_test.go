package session

import (
	"context"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAssignsIDAndDefaults(t *testing.T) {
	m := NewManager(DefaultConfig())
	defer m.Shutdown()

	s, err := m.Create(context.Background(), "https://example.com", "")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "https://example.com", s.BaseURL)
	assert.Equal(t, 1, m.Count())
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	m := NewManager(DefaultConfig())
	defer m.Shutdown()

	_, err := m.Create(context.Background(), "https://example.com", "fixed")
	require.NoError(t, err)
	_, err = m.Create(context.Background(), "https://example.com", "fixed")
	assert.Error(t, err)
}

func TestCreateEvictsLRUWhenAtCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSessions = 2
	m := NewManager(cfg)
	defer m.Shutdown()

	a, err := m.Create(context.Background(), "https://a.com", "a")
	require.NoError(t, err)
	_, err = m.Create(context.Background(), "https://b.com", "b")
	require.NoError(t, err)

	a.lastUsed.Store(time.Now().Add(-time.Hour).UnixNano())

	_, err = m.Create(context.Background(), "https://c.com", "c")
	require.NoError(t, err)

	assert.Equal(t, 2, m.Count())
	_, err = m.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetTouchesLastUsed(t *testing.T) {
	m := NewManager(DefaultConfig())
	defer m.Shutdown()

	s, err := m.Create(context.Background(), "https://example.com", "x")
	require.NoError(t, err)
	s.lastUsed.Store(0)

	_, err = m.Get("x")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), s.LastUsed(), time.Second)
}

func TestGetReturnsNotFoundForClosingSession(t *testing.T) {
	m := NewManager(DefaultConfig())
	defer m.Shutdown()

	s, err := m.Create(context.Background(), "https://example.com", "x")
	require.NoError(t, err)
	s.closing.Store(true)

	_, err = m.Get("x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRotateTransfersOnlyNonHTTPOnlyCookies(t *testing.T) {
	m := NewManager(DefaultConfig())
	defer m.Shutdown()

	old, err := m.Create(context.Background(), "https://example.com", "old")
	require.NoError(t, err)
	old.cookies = []*proto.NetworkCookieParam{
		{Name: "session_token", Value: "secret", HTTPOnly: true},
		{Name: "pref", Value: "dark", HTTPOnly: false},
	}

	next, err := m.Rotate(context.Background(), "old", "https://example.com/page2")
	require.NoError(t, err)

	assert.Len(t, next.cookies, 1)
	assert.Equal(t, "pref", next.cookies[0].Name)

	_, err = m.Get("old")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCleanupRemovesSession(t *testing.T) {
	m := NewManager(DefaultConfig())
	defer m.Shutdown()

	_, err := m.Create(context.Background(), "https://example.com", "x")
	require.NoError(t, err)

	require.NoError(t, m.Cleanup("x"))
	assert.Equal(t, 0, m.Count())
}

func TestCleanupRefusesWhileReferencesHeld(t *testing.T) {
	m := NewManager(DefaultConfig())
	defer m.Shutdown()

	s, err := m.Create(context.Background(), "https://example.com", "x")
	require.NoError(t, err)
	require.True(t, s.Acquire())

	err = m.Cleanup("x")
	assert.ErrorIs(t, err, ErrInUse)

	s.Release()
}

func TestAppendVisitedDedupsAndCaps(t *testing.T) {
	var list []string
	appendVisited(&list, "https://a.com")
	appendVisited(&list, "https://a.com")
	appendVisited(&list, "https://b.com")
	assert.Equal(t, []string{"https://a.com", "https://b.com"}, list)
}
