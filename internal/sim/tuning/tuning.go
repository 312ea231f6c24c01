package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz         int `yaml:"tick_rate_hz"`
	SyncEveryTicks     int `yaml:"sync_every_ticks"`
	AutosaveEveryTicks int `yaml:"autosave_every_ticks"`

	Pools     Pools     `yaml:"pools"`
	Cooldowns Cooldowns `yaml:"cooldowns"`
	Effects   Effects   `yaml:"effects"`
}

type Pools struct {
	Personal PoolTuning `yaml:"personal"`
	Aura     PoolTuning `yaml:"aura"`
	Reserve  PoolTuning `yaml:"reserve"`
}

type PoolTuning struct {
	MaxPool   float64 `yaml:"max_pool"`
	RegenRate float64 `yaml:"regen_rate"`
}

type Cooldowns struct {
	// KeepAcrossSessions retains ritual cooldowns after the actor leaves.
	KeepAcrossSessions bool `yaml:"keep_across_sessions"`
}

type Effects struct {
	// StrictTags turns unknown ritual effect tags into execution faults
	// instead of falling back to the generic buff handler.
	StrictTags bool `yaml:"strict_tags"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:         20,
		SyncEveryTicks:     20,
		AutosaveEveryTicks: 6000,
		Pools: Pools{
			Personal: PoolTuning{MaxPool: 1000, RegenRate: 0.5},
			Aura:     PoolTuning{MaxPool: 500, RegenRate: 0.2},
			Reserve:  PoolTuning{MaxPool: 3000, RegenRate: 0.05},
		},
	}
}

// Load reads a tuning file on top of Defaults, so omitted keys keep their
// default value.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be > 0")
	}
	if t.SyncEveryTicks < 0 || t.AutosaveEveryTicks < 0 {
		return fmt.Errorf("sync/autosave cadence must be >= 0")
	}
	for name, p := range map[string]PoolTuning{
		"personal": t.Pools.Personal,
		"aura":     t.Pools.Aura,
		"reserve":  t.Pools.Reserve,
	} {
		if p.MaxPool < 0 {
			return fmt.Errorf("pools.%s.max_pool must be >= 0", name)
		}
		if p.RegenRate < 0 {
			return fmt.Errorf("pools.%s.regen_rate must be >= 0", name)
		}
	}
	return nil
}
