package world

import (
	"sort"

	"manacraft.ai/internal/sim/mathx"
)

const ActorType = "minecraft:player"

type EntityType struct {
	ID            string
	MaxHealth     float64
	LifetimeTicks int // 0 = permanent
}

func DefaultEntityTypes() []EntityType {
	return []EntityType{
		{ID: "mam:fire_elemental", MaxHealth: 40, LifetimeTicks: 120 * TicksPerSecond},
		{ID: "mam:water_elemental", MaxHealth: 40, LifetimeTicks: 120 * TicksPerSecond},
		{ID: "mam:earth_elemental", MaxHealth: 60, LifetimeTicks: 120 * TicksPerSecond},
		{ID: "mam:air_elemental", MaxHealth: 30, LifetimeTicks: 120 * TicksPerSecond},
		{ID: "mam:spirit_wolf", MaxHealth: 20, LifetimeTicks: 300 * TicksPerSecond},
		{ID: "mam:spell_projectile", MaxHealth: 1, LifetimeTicks: 3 * TicksPerSecond},
		{ID: "minecraft:zombie", MaxHealth: 20},
		{ID: "minecraft:skeleton", MaxHealth: 20},
	}
}

type Status struct {
	Amplifier      int
	RemainingTicks int
}

type Entity struct {
	ID    string
	Type  string
	Owner string

	Pos      mathx.Vec3
	Velocity mathx.Vec3

	Health    float64
	MaxHealth float64
	Level     int

	// FireTicks counts down while the entity burns.
	FireTicks int
	// TTL counts down for temporary summons; 0 means permanent.
	TTL int

	Inventory map[string]int
	Statuses  map[string]Status
}

func (e *Entity) initDefaults() {
	if e.Inventory == nil {
		e.Inventory = map[string]int{}
	}
	if e.Statuses == nil {
		e.Statuses = map[string]Status{}
	}
	if e.MaxHealth == 0 {
		e.MaxHealth = 20
	}
	if e.Health == 0 {
		e.Health = e.MaxHealth
	}
	if e.Level == 0 {
		e.Level = 1
	}
}

func (e *Entity) Alive() bool { return e.Health > 0 }

func (e *Entity) clone() Entity {
	c := *e
	c.Inventory = make(map[string]int, len(e.Inventory))
	for k, v := range e.Inventory {
		c.Inventory[k] = v
	}
	c.Statuses = make(map[string]Status, len(e.Statuses))
	for k, v := range e.Statuses {
		c.Statuses[k] = v
	}
	return c
}

// StatusNames returns the active status effects in sorted order.
func (e Entity) StatusNames() []string {
	out := make([]string, 0, len(e.Statuses))
	for k := range e.Statuses {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
