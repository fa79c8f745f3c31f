package player

import (
	"sync"

	"github.com/MRamiBalles/vitals/internal/reactive"
)

// Progress holds the advancement counters.
type Progress struct {
	Level         *reactive.Value[int]
	Experience    *reactive.Value[int]
	MaxExperience *reactive.Value[int]

	policy Policy
	mu     sync.Mutex // serializes Gain across the three cells
}

func newProgress(stats Stats, policy Policy) *Progress {
	return &Progress{
		Level:         reactive.NewValue(stats.Level),
		Experience:    reactive.NewValue(stats.Experience),
		MaxExperience: reactive.NewValue(stats.MaxExperience),
		policy:        policy,
	}
}

// Gain adds xp and returns how many levels were gained. Experience is
// written first, then MaxExperience, then Level; a reader may observe the
// cells between those writes.
func (p *Progress) Gain(xp int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.policy.LevelUp {
		p.Experience.Update(func(cur int) int { return cur + xp })
		return 0
	}

	exp := p.Experience.Get() + xp
	threshold := p.MaxExperience.Get()
	gained := 0
	for threshold > 0 && exp >= threshold {
		exp -= threshold
		threshold = p.policy.nextThreshold(threshold)
		gained++
	}

	p.Experience.Set(exp)
	if gained > 0 {
		p.MaxExperience.Set(threshold)
		p.Level.Update(func(lvl int) int { return lvl + gained })
	}
	return gained
}
