package antidetect

import "time"

// Profile names the four anti-detection postures the executor can select
// before navigation (spec §4.6).
type Profile string

const (
	Conservative Profile = "conservative"
	Balanced     Profile = "balanced"
	Aggressive   Profile = "aggressive"
	Stealth      Profile = "stealth"
)

// Params is one profile's resolved behavior.
type Params struct {
	Profile          Profile
	InterRequest     time.Duration
	Retries          int
	Level            string // "high" | "medium" | "low" | "max"
	ParallelBrowsers int
	Simulate         bool // emit mouse/scroll/typing simulation
	ProxyRotation    bool
	LongDwell        bool
	Timing           TimingConfig
	Mouse            MouseConfig
	Scroll           ScrollConfig
}

// Resolve returns the full parameter set for a named profile.
func Resolve(p Profile) Params {
	switch p {
	case Conservative:
		return Params{
			Profile: p, InterRequest: 5 * time.Second, Retries: 5, Level: "high",
			ParallelBrowsers: 1, Simulate: true, ProxyRotation: true, LongDwell: false,
			Timing: TimingConfig{
				PreActionDelayMinMs: 100, PreActionDelayMaxMs: 400,
				PostActionDelayMinMs: 150, PostActionDelayMaxMs: 500,
				TypingDelayMinMs: 50, TypingDelayMaxMs: 150,
				DwellMinMs: 500, DwellMaxMs: 1500,
			},
			Mouse:  DefaultMouseConfig(),
			Scroll: DefaultScrollConfig(),
		}
	case Balanced:
		return Params{
			Profile: p, InterRequest: 2 * time.Second, Retries: 3, Level: "medium",
			ParallelBrowsers: 2, Simulate: true, ProxyRotation: false, LongDwell: false,
			Timing: TimingConfig{
				PreActionDelayMinMs: 80, PreActionDelayMaxMs: 300,
				PostActionDelayMinMs: 120, PostActionDelayMaxMs: 400,
				TypingDelayMinMs: 50, TypingDelayMaxMs: 150,
				DwellMinMs: 300, DwellMaxMs: 900,
			},
			Mouse:  DefaultMouseConfig(),
			Scroll: DefaultScrollConfig(),
		}
	case Aggressive:
		return Params{
			Profile: p, InterRequest: time.Second, Retries: 2, Level: "low",
			ParallelBrowsers: 3, Simulate: false, ProxyRotation: false, LongDwell: false,
			Timing: TimingConfig{
				PreActionDelayMinMs: 20, PreActionDelayMaxMs: 80,
				PostActionDelayMinMs: 30, PostActionDelayMaxMs: 100,
				TypingDelayMinMs: 10, TypingDelayMaxMs: 40,
				DwellMinMs: 100, DwellMaxMs: 300,
			},
		}
	case Stealth:
		return Params{
			Profile: p, InterRequest: 8 * time.Second, Retries: 7, Level: "max",
			ParallelBrowsers: 1, Simulate: true, ProxyRotation: true, LongDwell: true,
			Timing: TimingConfig{
				PreActionDelayMinMs: 200, PreActionDelayMaxMs: 700,
				PostActionDelayMinMs: 300, PostActionDelayMaxMs: 900,
				TypingDelayMinMs: 80, TypingDelayMaxMs: 220,
				DwellMinMs: 2000, DwellMaxMs: 6000,
			},
			Mouse:  DefaultMouseConfig(),
			Scroll: DefaultScrollConfig(),
		}
	default:
		return Resolve(Balanced)
	}
}

// Select is a pure function of detection signals and estimated request
// volume (spec §4.6): escalate to stealth when detection already fired,
// otherwise scale down from conservative as volume grows.
func Select(detectionTriggered, timingSuspicious bool, volumeEstimate int) Profile {
	if detectionTriggered {
		return Stealth
	}
	if timingSuspicious {
		return Conservative
	}
	switch {
	case volumeEstimate <= 10:
		return Conservative
	case volumeEstimate <= 100:
		return Balanced
	default:
		return Aggressive
	}
}
