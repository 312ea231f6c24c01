package world

import (
	"fmt"
	"strings"

	"manacraft.ai/internal/sim/mathx"
)

// Level returns the entity's experience level, 0 when absent.
func (w *World) Level(id string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entities[id]; ok {
		return e.Level
	}
	return 0
}

func (w *World) SetLevel(id string, level int) error {
	if level < 0 {
		return fmt.Errorf("bad level: %d", level)
	}
	return w.mutate(id, func(e *Entity) { e.Level = level })
}

func (w *World) GiveItem(id, item string, n int) error {
	if n <= 0 {
		return fmt.Errorf("bad item count: %d", n)
	}
	item = NormalizeBlock(item)
	return w.mutate(id, func(e *Entity) { e.Inventory[item] += n })
}

// HasItems reports whether the entity carries at least one of every item.
func (w *World) HasItems(id string, items []string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[id]
	if !ok {
		return len(items) == 0
	}
	for _, it := range items {
		if e.Inventory[NormalizeBlock(it)] <= 0 {
			return false
		}
	}
	return true
}

// ApplyStatus sets a timed status effect, keeping the stronger of an existing
// and the new amplifier and the longer remaining time.
func (w *World) ApplyStatus(id, effect string, durationTicks, amplifier int) error {
	if durationTicks <= 0 {
		return nil
	}
	effect = strings.TrimSpace(strings.ToLower(effect))
	if effect == "" {
		return fmt.Errorf("empty status effect")
	}
	if !strings.Contains(effect, ":") {
		effect = "minecraft:" + effect
	}
	return w.mutate(id, func(e *Entity) {
		s := e.Statuses[effect]
		s.Amplifier = max(s.Amplifier, amplifier)
		s.RemainingTicks = max(s.RemainingTicks, durationTicks)
		e.Statuses[effect] = s
	})
}

func (w *World) ActiveStatuses(id string) []string {
	e, ok := w.Entity(id)
	if !ok {
		return nil
	}
	return e.StatusNames()
}

func (w *World) Heal(id string, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("bad heal amount: %v", amount)
	}
	return w.mutate(id, func(e *Entity) {
		if e.Alive() {
			e.Health = min(e.MaxHealth, e.Health+amount)
		}
	})
}

func (w *World) Damage(id string, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("bad damage amount: %v", amount)
	}
	return w.mutate(id, func(e *Entity) {
		if s, ok := e.Statuses["minecraft:resistance"]; ok {
			amount *= max(0, 1-0.2*float64(s.Amplifier+1))
		}
		e.Health = max(0, e.Health-amount)
	})
}

// SetHealthFraction sets health to frac of max health.
func (w *World) SetHealthFraction(id string, frac float64) error {
	if frac < 0 || frac > 1 {
		return fmt.Errorf("bad health fraction: %v", frac)
	}
	return w.mutate(id, func(e *Entity) { e.Health = e.MaxHealth * frac })
}

func (w *World) Ignite(id string, ticks int) error {
	return w.mutate(id, func(e *Entity) { e.FireTicks = max(e.FireTicks, ticks) })
}

func (w *World) Push(id string, delta mathx.Vec3) error {
	return w.mutate(id, func(e *Entity) { e.Velocity = e.Velocity.Add(delta) })
}

func (w *World) StopMotion(id string) error {
	return w.mutate(id, func(e *Entity) { e.Velocity = mathx.Vec3{} })
}
