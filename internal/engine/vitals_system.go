package engine

import (
	"fmt"

	"github.com/MRamiBalles/vitals/internal/domain/player"
	"github.com/MRamiBalles/vitals/internal/events"
	"github.com/MRamiBalles/vitals/internal/platform/logger"
)

const (
	DrainPerTick      = 1  // subtracted from every resource
	ExperiencePerTick = 10 // added to progress experience
)

// LevelUpPayload describes a level transition.
type LevelUpPayload struct {
	Level         int `json:"level"`
	LevelsGained  int `json:"levels_gained"`
	MaxExperience int `json:"max_experience"`
}

// DepletedPayload describes a resource reaching zero.
type DepletedPayload struct {
	Resource player.ResourceName `json:"resource"`
	Current  int                 `json:"current"`
}

// VitalsSystem applies the per-tick drain and experience gain.
type VitalsSystem struct {
	eventLog *events.EventLog
	logger   *logger.Logger
	player   *player.Player
}

// NewVitalsSystem creates the system for one player.
func NewVitalsSystem(eventLog *events.EventLog, log *logger.Logger, p *player.Player) *VitalsSystem {
	return &VitalsSystem{
		eventLog: eventLog,
		logger:   log,
		player:   p,
	}
}

// OnTimeTick runs the four tick steps in order: health, mana and stamina
// each lose DrainPerTick, then experience gains ExperiencePerTick. Each step
// is a single read-then-write; the four together are not atomic.
func (vs *VitalsSystem) OnTimeTick(payload TimeTickPayload) {
	for _, r := range vs.player.Resources() {
		wasDepleted := r.Depleted()
		current := r.Drain(DrainPerTick)

		if !wasDepleted && r.Depleted() {
			vs.logger.Warn(fmt.Sprintf("RESOURCE DEPLETED: %s of %s", r.Name, vs.player.ID))
			vs.eventLog.Append(events.Event{
				Type:       events.EventTypeResourceDepleted,
				ActorID:    ActorVitals,
				TargetID:   vs.player.ID,
				Payload:    DepletedPayload{Resource: r.Name, Current: current},
				TickNumber: payload.TickNumber,
			})
		}
	}

	gained := vs.player.Progress.Gain(ExperiencePerTick)
	if gained > 0 {
		level := vs.player.Progress.Level.Get()
		vs.logger.Event(string(events.EventTypeLevelUp), ActorVitals, fmt.Sprintf("%s reached level %d", vs.player.ID, level))
		vs.eventLog.Append(events.Event{
			Type:     events.EventTypeLevelUp,
			ActorID:  ActorVitals,
			TargetID: vs.player.ID,
			Payload: LevelUpPayload{
				Level:         level,
				LevelsGained:  gained,
				MaxExperience: vs.player.Progress.MaxExperience.Get(),
			},
			TickNumber: payload.TickNumber,
		})
	}
}
