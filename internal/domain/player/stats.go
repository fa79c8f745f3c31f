// Package player defines the vitals store: three resources and the
// progression counters, each held in observable cells.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package player

import (
	"errors"
	"fmt"
)

// ResourceName identifies one of the three vital stats.
type ResourceName string

const (
	ResourceHealth  ResourceName = "health"
	ResourceMana    ResourceName = "mana"
	ResourceStamina ResourceName = "stamina"
)

// ResourceNames lists the resources in tick order.
var ResourceNames = []ResourceName{ResourceHealth, ResourceMana, ResourceStamina}

var (
	ErrInvalidStats    = errors.New("invalid stats")
	ErrUnknownResource = errors.New("unknown resource")
)

// ResourceStats is a plain current/max pair.
type ResourceStats struct {
	Current int `json:"current" toml:"current"`
	Max     int `json:"max" toml:"max"`
}

// Stats holds plain initial values for a Player. It is also the shape of a
// point-in-time snapshot.
type Stats struct {
	Health  ResourceStats `json:"health" toml:"health"`
	Mana    ResourceStats `json:"mana" toml:"mana"`
	Stamina ResourceStats `json:"stamina" toml:"stamina"`

	Level         int `json:"level" toml:"level"`                   // starts at 1
	Experience    int `json:"experience" toml:"experience"`         // 0..MaxExperience
	MaxExperience int `json:"max_experience" toml:"max_experience"` // threshold for the next level
}

// DefaultStats returns the starting loadout.
func DefaultStats() Stats {
	return Stats{
		Health:        ResourceStats{Current: 100, Max: 100},
		Mana:          ResourceStats{Current: 50, Max: 50},
		Stamina:       ResourceStats{Current: 75, Max: 75},
		Level:         1,
		Experience:    0,
		MaxExperience: 100,
	}
}

// Resource returns the pair for name.
func (s Stats) Resource(name ResourceName) (ResourceStats, error) {
	switch name {
	case ResourceHealth:
		return s.Health, nil
	case ResourceMana:
		return s.Mana, nil
	case ResourceStamina:
		return s.Stamina, nil
	}
	return ResourceStats{}, fmt.Errorf("%w: %q", ErrUnknownResource, name)
}

// Validate checks the construction invariants.
func (s Stats) Validate() error {
	for _, name := range ResourceNames {
		r, _ := s.Resource(name)
		if r.Max <= 0 {
			return fmt.Errorf("%w: %s max must be positive, got %d", ErrInvalidStats, name, r.Max)
		}
		if r.Current < 0 || r.Current > r.Max {
			return fmt.Errorf("%w: %s current %d outside [0, %d]", ErrInvalidStats, name, r.Current, r.Max)
		}
	}
	if s.Level < 1 {
		return fmt.Errorf("%w: level must be at least 1, got %d", ErrInvalidStats, s.Level)
	}
	if s.MaxExperience <= 0 {
		return fmt.Errorf("%w: max experience must be positive, got %d", ErrInvalidStats, s.MaxExperience)
	}
	if s.Experience < 0 {
		return fmt.Errorf("%w: experience must not be negative, got %d", ErrInvalidStats, s.Experience)
	}
	return nil
}

// SetCell writes v into the field named by a cell name as returned by
// Player.Cells.
func (s *Stats) SetCell(name string, v int) error {
	switch name {
	case "health.current":
		s.Health.Current = v
	case "health.max":
		s.Health.Max = v
	case "mana.current":
		s.Mana.Current = v
	case "mana.max":
		s.Mana.Max = v
	case "stamina.current":
		s.Stamina.Current = v
	case "stamina.max":
		s.Stamina.Max = v
	case "progress.level":
		s.Level = v
	case "progress.experience":
		s.Experience = v
	case "progress.max_experience":
		s.MaxExperience = v
	default:
		return fmt.Errorf("%w: cell %q", ErrUnknownResource, name)
	}
	return nil
}
