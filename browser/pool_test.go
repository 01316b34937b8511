package browser

import (
	"context"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/iwsa/config"
)

// fakeLaunch stands in for a real Chrome launch in tests: it never touches
// a browser process, keeping these tests free of any live-browser dependency.
func fakeLaunch(cfg config.BrowserConfig, userAgent, proxy string) (*rod.Browser, *rod.Page, error) {
	return nil, nil, nil
}

func testPool(t *testing.T, cfg config.BrowserPoolConfig) *Pool {
	t.Helper()
	return newPool(cfg, config.BrowserConfig{}, nil, fakeLaunch)
}

func TestAcquireCreatesUpToMax(t *testing.T) {
	p := testPool(t, config.BrowserPoolConfig{MaxInstances: 2, AcquireWait: time.Second, AcquireTimeout: 2 * time.Second})
	defer p.Shutdown()

	a, err := p.Acquire(context.Background(), false)
	require.NoError(t, err)
	b, err := p.Acquire(context.Background(), false)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, p.Size())
	assert.Equal(t, 2, p.ActiveCount())
}

func TestReleaseReturnsInstanceToIdleForReuse(t *testing.T) {
	p := testPool(t, config.BrowserPoolConfig{MaxInstances: 1, AcquireWait: time.Second, AcquireTimeout: 2 * time.Second})
	defer p.Shutdown()

	inst, err := p.Acquire(context.Background(), false)
	require.NoError(t, err)
	id := inst.ID
	p.Release(inst)

	again, err := p.Acquire(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, id, again.ID)
}

func TestReleaseRetiresExpiredByRequestCount(t *testing.T) {
	p := testPool(t, config.BrowserPoolConfig{MaxInstances: 1, MaxPerInstance: 1, AcquireWait: time.Second, AcquireTimeout: 2 * time.Second})
	defer p.Shutdown()

	inst, err := p.Acquire(context.Background(), false)
	require.NoError(t, err)
	firstID := inst.ID
	p.Release(inst) // RequestCount becomes 1, >= MaxPerInstance(1): retired.

	again, err := p.Acquire(context.Background(), false)
	require.NoError(t, err)
	assert.NotEqual(t, firstID, again.ID)
}

func TestForceNewBlocksThenEvictsLRUIdleAtCapacity(t *testing.T) {
	p := testPool(t, config.BrowserPoolConfig{MaxInstances: 1, AcquireWait: 30 * time.Millisecond, AcquireTimeout: time.Second})
	defer p.Shutdown()

	held, err := p.Acquire(context.Background(), false)
	require.NoError(t, err)
	firstID := held.ID
	p.Release(held) // idle, but the pool is already at MaxInstances capacity.

	start := time.Now()
	next, err := p.Acquire(context.Background(), true) // force_new: must not reuse the idle instance.
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
	assert.NotEqual(t, firstID, next.ID)
	assert.Equal(t, 1, p.Size())
}

func TestAcquireFailsAfterTimeoutWhenAllBusy(t *testing.T) {
	p := testPool(t, config.BrowserPoolConfig{MaxInstances: 1, AcquireWait: 10 * time.Millisecond, AcquireTimeout: 40 * time.Millisecond})
	defer p.Shutdown()

	_, err := p.Acquire(context.Background(), false) // holds the only instance, never released.
	require.NoError(t, err)

	_, err = p.Acquire(context.Background(), false)
	assert.Error(t, err)
}

func TestShutdownClosesAllInstances(t *testing.T) {
	p := testPool(t, config.BrowserPoolConfig{MaxInstances: 3, MinInstances: 2, AcquireWait: time.Second, AcquireTimeout: time.Second})
	assert.Equal(t, 2, p.Size())
	p.Shutdown()
	assert.Equal(t, 0, p.Size())
}

func TestExpiredByAgeIsDestroyedOnAcquireScan(t *testing.T) {
	p := testPool(t, config.BrowserPoolConfig{MaxInstances: 1, MaxAge: time.Millisecond, AcquireWait: time.Second, AcquireTimeout: time.Second})
	defer p.Shutdown()

	inst, err := p.Acquire(context.Background(), false)
	require.NoError(t, err)
	p.Release(inst)
	time.Sleep(5 * time.Millisecond)

	again, err := p.Acquire(context.Background(), false)
	require.NoError(t, err)
	assert.NotEqual(t, inst.ID, again.ID)
}
