package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAcquireBlocksUntilTokenAvailable(t *testing.T) {
	r := NewRegistry(1)
	defer r.Stop()

	ctx := context.Background()
	start := time.Now()

	// First acquire drains the single burst token immediately.
	assert.NoError(t, r.Acquire(ctx, "domain.test", 10))
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	// Second acquire must wait roughly 1/10s for the next token.
	start = time.Now()
	assert.NoError(t, r.Acquire(ctx, "domain.test", 10))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	r := NewRegistry(1)
	defer r.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// Drain the burst token, then expect the next wait to time out via ctx.
	require := assert.New(t)
	require.NoError(r.Acquire(context.Background(), "slow", 0.1))
	err := r.Acquire(ctx, "slow", 0.1)
	require.Error(err)
}

func TestSetRateCreatesChannelIfAbsent(t *testing.T) {
	r := NewRegistry(1)
	defer r.Stop()

	r.SetRate("new-channel", 5)
	assert.NoError(t, r.Acquire(context.Background(), "new-channel", 5))
}

func TestDistinctChannelsAreIndependent(t *testing.T) {
	r := NewRegistry(1)
	defer r.Stop()
	ctx := context.Background()

	assert.NoError(t, r.Acquire(ctx, "a", 1))
	// channel "b" still has its own fresh burst token, unaffected by "a".
	start := time.Now()
	assert.NoError(t, r.Acquire(ctx, "b", 1))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}
