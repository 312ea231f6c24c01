package mana

import "manacraft.ai/internal/sim/tuning"

// Kind is a reserve category. The set is fixed.
type Kind string

const (
	Personal Kind = "personal"
	Aura     Kind = "aura"
	Reserve  Kind = "reserve"
)

// Kinds lists every reserve kind in display order.
var Kinds = []Kind{Personal, Aura, Reserve}

func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

func (k Kind) DisplayName() string {
	switch k {
	case Personal:
		return "Personal"
	case Aura:
		return "Aura"
	case Reserve:
		return "Reserve"
	default:
		return string(k)
	}
}

type KindConfig struct {
	Max   float64
	Regen float64
}

// Config holds the configured capacity and per-tick regeneration of every kind.
type Config map[Kind]KindConfig

func ConfigFromTuning(t tuning.Tuning) Config {
	return Config{
		Personal: {Max: t.Pools.Personal.MaxPool, Regen: t.Pools.Personal.RegenRate},
		Aura:     {Max: t.Pools.Aura.MaxPool, Regen: t.Pools.Aura.RegenRate},
		Reserve:  {Max: t.Pools.Reserve.MaxPool, Regen: t.Pools.Reserve.RegenRate},
	}
}

func DefaultConfig() Config { return ConfigFromTuning(tuning.Defaults()) }
