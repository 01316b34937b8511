package antidetect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSuspiciousWithNoHistoryIsFalse(t *testing.T) {
	a := NewTimingAnalyzer()
	assert.False(t, a.Suspicious("example.com"))
}

func TestSuspiciousFlagsSubHalfSecondInterval(t *testing.T) {
	a := NewTimingAnalyzer()
	base := time.Now()
	a.Record("example.com", base)
	a.Record("example.com", base.Add(200*time.Millisecond))
	assert.True(t, a.Suspicious("example.com"))
}

func TestSuspiciousFlagsSubOneSecondMean(t *testing.T) {
	a := NewTimingAnalyzer()
	base := time.Now()
	for i := 0; i < 5; i++ {
		a.Record("example.com", base.Add(time.Duration(i)*700*time.Millisecond))
	}
	assert.True(t, a.Suspicious("example.com"))
}

func TestSuspiciousFlagsOverlyRegularIntervals(t *testing.T) {
	a := NewTimingAnalyzer()
	base := time.Now()
	for i := 0; i < 10; i++ {
		a.Record("example.com", base.Add(time.Duration(i)*2*time.Second))
	}
	assert.True(t, a.Suspicious("example.com"))
}

func TestNotSuspiciousWithVariedSlowIntervals(t *testing.T) {
	a := NewTimingAnalyzer()
	base := time.Now()
	offsets := []time.Duration{0, 2 * time.Second, 5 * time.Second, 7700 * time.Millisecond, 12 * time.Second, 19300 * time.Millisecond, 25 * time.Second}
	for _, off := range offsets {
		a.Record("example.com", base.Add(off))
	}
	assert.False(t, a.Suspicious("example.com"))
}
