package resolver

import (
	"time"

	"github.com/lingualens/lingualens/internal/surface"
)

// Config tunes the scan and fallback behavior of a Resolver.
type Config struct {
	// Debounce is the quiet window that coalesces change bursts into one
	// scan pass.
	Debounce time.Duration

	// Selectors is the prioritized selector list; host-specific entries
	// (weight 2) go ahead of generic structural ones (weight 1).
	Selectors []surface.Selector

	// MinScore is the floor a structural candidate must clear to be emitted.
	MinScore float64

	// MaxLineLength starts the length penalty; texts longer than this are
	// unlikely to be a single subtitle line.
	MaxLineLength int

	// MaxHeightRatio starts the size penalty; elements taller than this
	// fraction of the viewport are likely not captions.
	MaxHeightRatio float64

	// AffinityFloor is the video-affinity value below which a hard penalty
	// applies.
	AffinityFloor float64

	// MissThreshold is the consecutive structural-miss count that forces the
	// optical fallback.
	MissThreshold int

	// OpticalHosts is the allowlist of hosts where optical recognition is
	// preferred even before the miss threshold.
	OpticalHosts []string

	// OpticalMinConfidence rejects recognition results below this score.
	OpticalMinConfidence float64

	// OpticalCooldown bounds how often the recognition capability runs;
	// OpticalForcedCooldown is the shorter window used after persistent
	// misses.
	OpticalCooldown       time.Duration
	OpticalForcedCooldown time.Duration
}

func DefaultConfig() Config {
	return Config{
		Debounce: 150 * time.Millisecond,
		Selectors: []surface.Selector{
			{Query: ".caption-window", Weight: 2},
			{Query: ".player-timedtext", Weight: 2},
			{Query: "[class*='subtitle']", Weight: 1},
			{Query: "[class*='caption']", Weight: 1},
		},
		MinScore:              2.5,
		MaxLineLength:         160,
		MaxHeightRatio:        0.4,
		AffinityFloor:         0.15,
		MissThreshold:         3,
		OpticalMinConfidence:  0.6,
		OpticalCooldown:       20 * time.Second,
		OpticalForcedCooldown: 5 * time.Second,
	}
}
