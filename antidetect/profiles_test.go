package antidetect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveMatchesSpecTable(t *testing.T) {
	cases := []struct {
		profile  Profile
		inter    time.Duration
		retries  int
		level    string
		parallel int
	}{
		{Conservative, 5 * time.Second, 5, "high", 1},
		{Balanced, 2 * time.Second, 3, "medium", 2},
		{Aggressive, time.Second, 2, "low", 3},
		{Stealth, 8 * time.Second, 7, "max", 1},
	}
	for _, c := range cases {
		p := Resolve(c.profile)
		assert.Equal(t, c.inter, p.InterRequest, c.profile)
		assert.Equal(t, c.retries, p.Retries, c.profile)
		assert.Equal(t, c.level, p.Level, c.profile)
		assert.Equal(t, c.parallel, p.ParallelBrowsers, c.profile)
	}
}

func TestSelectEscalatesToStealthOnDetection(t *testing.T) {
	assert.Equal(t, Stealth, Select(true, false, 5))
}

func TestSelectFallsBackToConservativeOnSuspiciousTiming(t *testing.T) {
	assert.Equal(t, Conservative, Select(false, true, 500))
}

func TestSelectScalesWithVolume(t *testing.T) {
	assert.Equal(t, Conservative, Select(false, false, 5))
	assert.Equal(t, Balanced, Select(false, false, 50))
	assert.Equal(t, Aggressive, Select(false, false, 1000))
}
