package player

import "github.com/MRamiBalles/vitals/internal/reactive"

// Resource is one vital stat as a pair of observable cells.
type Resource struct {
	Name    ResourceName
	Current *reactive.Value[int]
	Max     *reactive.Value[int]

	policy Policy
}

func newResource(name ResourceName, stats ResourceStats, policy Policy) *Resource {
	return &Resource{
		Name:    name,
		Current: reactive.NewValue(stats.Current),
		Max:     reactive.NewValue(stats.Max),
		policy:  policy,
	}
}

// Drain subtracts n from Current and returns the value written.
func (r *Resource) Drain(n int) int {
	return r.adjust(-n)
}

// Restore adds n to Current and returns the value written.
func (r *Resource) Restore(n int) int {
	return r.adjust(n)
}

func (r *Resource) adjust(delta int) int {
	var written int
	r.Current.Update(func(cur int) int {
		written = r.policy.clampResource(cur+delta, r.Max.Get())
		return written
	})
	return written
}

// SetMax changes the ceiling. Under a clamping policy Current is pulled
// down when it would exceed the new ceiling; a lowered ceiling is written
// after Current so Max subscribers never see Current above Max.
func (r *Resource) SetMax(ceiling int) {
	if !r.policy.ClampResources || ceiling >= r.Max.Get() {
		r.Max.Set(ceiling)
		return
	}
	r.Current.Update(func(cur int) int {
		return r.policy.clampResource(cur, ceiling)
	})
	r.Max.Set(ceiling)
}

// Depleted reports whether Current is at or below zero.
func (r *Resource) Depleted() bool {
	return r.Current.Get() <= 0
}

// Snapshot returns the plain values.
func (r *Resource) Snapshot() ResourceStats {
	return ResourceStats{Current: r.Current.Get(), Max: r.Max.Get()}
}
