package player

import (
	"fmt"

	"github.com/MRamiBalles/vitals/internal/reactive"
)

// Player is the vitals store. It is constructed explicitly and handed by
// reference to the engine and to every view that binds to it.
type Player struct {
	ID string

	Health   *Resource
	Mana     *Resource
	Stamina  *Resource
	Progress *Progress

	policy Policy
}

// Cell is a named observable number, used to enumerate every cell of a
// Player for bulk binding.
type Cell struct {
	Name  string
	Value *reactive.Value[int]
}

// New builds a Player from validated stats.
func New(id string, stats Stats, policy Policy) (*Player, error) {
	if err := stats.Validate(); err != nil {
		return nil, err
	}
	return &Player{
		ID:       id,
		Health:   newResource(ResourceHealth, stats.Health, policy),
		Mana:     newResource(ResourceMana, stats.Mana, policy),
		Stamina:  newResource(ResourceStamina, stats.Stamina, policy),
		Progress: newProgress(stats, policy),
		policy:   policy,
	}, nil
}

// NewDefault builds a Player with DefaultStats and DefaultPolicy.
func NewDefault(id string) *Player {
	p, err := New(id, DefaultStats(), DefaultPolicy())
	if err != nil {
		// DefaultStats is a constant loadout.
		panic(err)
	}
	return p
}

// Policy returns the bounds policy the Player was built with.
func (p *Player) Policy() Policy {
	return p.policy
}

// Resource looks a resource up by name.
func (p *Player) Resource(name ResourceName) (*Resource, error) {
	switch name {
	case ResourceHealth:
		return p.Health, nil
	case ResourceMana:
		return p.Mana, nil
	case ResourceStamina:
		return p.Stamina, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownResource, name)
}

// Resources returns the three resources in tick order.
func (p *Player) Resources() []*Resource {
	return []*Resource{p.Health, p.Mana, p.Stamina}
}

// Cells returns every observable cell with a dotted name such as
// "health.current" or "progress.level".
func (p *Player) Cells() []Cell {
	cells := make([]Cell, 0, 9)
	for _, r := range p.Resources() {
		cells = append(cells,
			Cell{Name: string(r.Name) + ".current", Value: r.Current},
			Cell{Name: string(r.Name) + ".max", Value: r.Max},
		)
	}
	return append(cells,
		Cell{Name: "progress.level", Value: p.Progress.Level},
		Cell{Name: "progress.experience", Value: p.Progress.Experience},
		Cell{Name: "progress.max_experience", Value: p.Progress.MaxExperience},
	)
}

// Snapshot reads every cell. Cells are read one by one, so a snapshot taken
// while a tick is running may mix pre- and post-tick values.
func (p *Player) Snapshot() Stats {
	return Stats{
		Health:        p.Health.Snapshot(),
		Mana:          p.Mana.Snapshot(),
		Stamina:       p.Stamina.Snapshot(),
		Level:         p.Progress.Level.Get(),
		Experience:    p.Progress.Experience.Get(),
		MaxExperience: p.Progress.MaxExperience.Get(),
	}
}
