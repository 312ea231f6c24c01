package world

import (
	"sort"

	"manacraft.ai/internal/sim/mathx"
)

const (
	fireDamage   = 1.0
	fireInterval = TicksPerSecond
	drag         = 0.6
)

// Step advances the world by one tick: statuses and fire count down, motion
// integrates with drag, expired summons and dead non-actors are removed.
// It returns the ids removed this tick.
func (w *World) Step() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tick++

	var removed []string
	for id, e := range w.entities {
		for name, s := range e.Statuses {
			s.RemainingTicks--
			if s.RemainingTicks <= 0 {
				delete(e.Statuses, name)
				continue
			}
			e.Statuses[name] = s
		}
		if e.FireTicks > 0 {
			e.FireTicks--
			if e.FireTicks%fireInterval == 0 {
				e.Health = max(0, e.Health-fireDamage)
			}
		}
		if e.Velocity != (mathx.Vec3{}) {
			e.Pos = e.Pos.Add(e.Velocity)
			e.Velocity = e.Velocity.Scale(drag)
			if e.Velocity.Len() < 1e-3 {
				e.Velocity = mathx.Vec3{}
			}
		}
		if e.TTL > 0 {
			e.TTL--
			if e.TTL == 0 {
				removed = append(removed, id)
				continue
			}
		}
		if !e.Alive() && e.Type != ActorType {
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	for _, id := range removed {
		delete(w.entities, id)
	}
	return removed
}
