package player

import "math"

// Policy decides what happens when a write would leave a cell outside its
// intended bounds.
type Policy struct {
	// ClampResources keeps every resource current value within [0, max].
	ClampResources bool
	// LevelUp converts experience at or above MaxExperience into levels.
	LevelUp bool
	// ExperienceGrowth scales MaxExperience on each level. Values <= 1 keep
	// the threshold constant.
	ExperienceGrowth float64
}

// DefaultPolicy clamps resources and levels up.
func DefaultPolicy() Policy {
	return Policy{
		ClampResources:   true,
		LevelUp:          true,
		ExperienceGrowth: 1.5,
	}
}

// UnboundedPolicy applies raw arithmetic: no clamp and no level-up.
func UnboundedPolicy() Policy {
	return Policy{}
}

func (p Policy) clampResource(v, ceiling int) int {
	if !p.ClampResources {
		return v
	}
	if v < 0 {
		return 0
	}
	if v > ceiling {
		return ceiling
	}
	return v
}

func (p Policy) nextThreshold(current int) int {
	if p.ExperienceGrowth <= 1 {
		return current
	}
	return int(math.Ceil(float64(current) * p.ExperienceGrowth))
}
