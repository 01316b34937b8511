package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTripsAfterConsecutiveFailures(t *testing.T) {
	b := New("test", Config{FailureThreshold: 3, RecoveryTimeout: time.Minute})

	errBoom := errors.New("boom")
	for i := 0; i < 2; i++ {
		err := b.Call(func() error { return errBoom })
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, Closed, b.State())
	}

	err := b.Call(func() error { return errBoom })
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, Open, b.State())
}

func TestOpenFailsFastWithoutInvokingFn(t *testing.T) {
	b := New("test", Config{FailureThreshold: 1, RecoveryTimeout: time.Hour})

	assert.Error(t, b.Call(func() error { return errors.New("x") }))
	assert.Equal(t, Open, b.State())

	called := false
	err := b.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestHalfOpenAllowsOneTrialAfterRecoveryTimeout(t *testing.T) {
	b := New("test", Config{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond})

	assert.Error(t, b.Call(func() error { return errors.New("x") }))
	assert.Equal(t, Open, b.State())

	time.Sleep(15 * time.Millisecond)
	assert.Equal(t, HalfOpen, b.State())

	assert.NoError(t, b.Call(func() error { return nil }))
	assert.Equal(t, Closed, b.State())
}

func TestHalfOpenTrialFailureReopens(t *testing.T) {
	b := New("test", Config{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond})

	assert.Error(t, b.Call(func() error { return errors.New("x") }))
	time.Sleep(15 * time.Millisecond)

	assert.Error(t, b.Call(func() error { return errors.New("still failing") }))
	assert.Equal(t, Open, b.State())
}

func TestSuccessResetsFailureCounter(t *testing.T) {
	b := New("test", Config{FailureThreshold: 3, RecoveryTimeout: time.Minute})

	assert.Error(t, b.Call(func() error { return errors.New("x") }))
	assert.Error(t, b.Call(func() error { return errors.New("x") }))
	assert.NoError(t, b.Call(func() error { return nil }))

	// Counter reset; two more failures should not trip (threshold is 3).
	assert.Error(t, b.Call(func() error { return errors.New("x") }))
	assert.Error(t, b.Call(func() error { return errors.New("x") }))
	assert.Equal(t, Closed, b.State())
}
