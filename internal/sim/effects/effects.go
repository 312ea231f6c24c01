// Package effects applies spell and ritual outcomes to the world.
package effects

import (
	"fmt"
	"io"
	"log"
	"sync"

	"manacraft.ai/internal/sim/catalogs"
	"manacraft.ai/internal/sim/mathx"
)

// TicksPerSecond converts definition seconds into world ticks.
const TicksPerSecond = 20

// World is the slice of world state the handlers mutate.
type World interface {
	PositionOf(id string) (mathx.Vec3, bool)
	LivingNear(center mathx.Vec3, radius float64, exclude string) []string
	ActiveStatuses(id string) []string

	ApplyStatus(id, effect string, durationTicks, amplifier int) error
	Heal(id string, amount float64) error
	Damage(id string, amount float64) error
	SetHealthFraction(id string, frac float64) error
	Ignite(id string, ticks int) error
	Push(id string, delta mathx.Vec3) error
	StopMotion(id string) error
	Spawn(entityType string, pos mathx.Vec3, owner string) (string, error)
	Message(id, text string)
}

type SpellContext struct {
	World World
	Actor string
	Spell catalogs.SpellDef
}

type RitualContext struct {
	World    World
	Actor    string
	RitualID string
	Effect   catalogs.Effect
	Origin   mathx.Vec3i
}

type SpellHandler func(ctx SpellContext) error
type RitualHandler func(ctx RitualContext) error

type Options struct {
	// StrictTags makes unknown ritual tags a fault instead of generic buffs.
	StrictTags bool
	Logger     *log.Logger
}

// Dispatcher routes spells by cast type and rituals by effect tag.
type Dispatcher struct {
	strict bool
	log    *log.Logger

	mu      sync.RWMutex
	spells  map[catalogs.CastType]SpellHandler
	rituals map[catalogs.EffectTag]RitualHandler
}

func NewDispatcher(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	d := &Dispatcher{
		strict:  opts.StrictTags,
		log:     logger,
		spells:  map[catalogs.CastType]SpellHandler{},
		rituals: map[catalogs.EffectTag]RitualHandler{},
	}
	for ct, h := range spellHandlers {
		d.spells[ct] = h
	}
	for tag, h := range ritualHandlers {
		d.rituals[tag] = h
	}
	return d
}

// HandleSpell replaces the handler for a cast type.
func (d *Dispatcher) HandleSpell(ct catalogs.CastType, h SpellHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spells[ct] = h
}

// HandleRitual replaces the handler for an effect tag.
func (d *Dispatcher) HandleRitual(tag catalogs.EffectTag, h RitualHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rituals[tag] = h
}

// CastSpell runs the handler for the spell's cast type. Any returned error
// or panic is a fault the caller must compensate.
func (d *Dispatcher) CastSpell(w World, actor string, spell catalogs.SpellDef) (err error) {
	d.mu.RLock()
	h, ok := d.spells[spell.CastType]
	if !ok {
		h = d.spells[catalogs.CastUtility]
	}
	d.mu.RUnlock()
	if h == nil {
		return fmt.Errorf("no handler for cast type %q", spell.CastType)
	}
	defer d.recoverFault(&err, "spell", spell.ID)
	return h(SpellContext{World: w, Actor: actor, Spell: spell})
}

// RunRitual runs the handler for the ritual's effect tag. A ritual without an
// effect succeeds with no mutation.
func (d *Dispatcher) RunRitual(w World, actor string, ritual catalogs.RitualDef, origin mathx.Vec3i) (err error) {
	if ritual.Effect == nil {
		return nil
	}
	eff := *ritual.Effect
	d.mu.RLock()
	h, ok := d.rituals[eff.Tag]
	generic := d.rituals[catalogs.TagBuff]
	d.mu.RUnlock()
	if !ok {
		if d.strict {
			return fmt.Errorf("unknown ritual effect %q", eff.Tag)
		}
		d.log.Printf("ritual %s: unknown effect %q, applying generic buffs", ritual.ID, eff.Tag)
		h = generic
	}
	if h == nil {
		return fmt.Errorf("no handler for ritual effect %q", eff.Tag)
	}
	if eff.Tag == catalogs.TagSummon && eff.Summon == "" {
		d.log.Printf("ritual %s: summon effect names no entity", ritual.ID)
	}
	defer d.recoverFault(&err, "ritual", ritual.ID)
	return h(RitualContext{World: w, Actor: actor, RitualID: ritual.ID, Effect: eff, Origin: origin})
}

func (d *Dispatcher) recoverFault(err *error, kind, id string) {
	if r := recover(); r != nil {
		d.log.Printf("%s %s: handler panic: %v", kind, id, r)
		*err = fmt.Errorf("%s handler panic: %v", kind, r)
	}
}

var statusAliases = map[string]string{
	"fire":      "minecraft:wither",
	"burning":   "minecraft:wither",
	"swiftness": "minecraft:speed",
	"regen":     "minecraft:regeneration",
	"slow":      "minecraft:slowness",
}

// StatusID resolves spell status names, including the short aliases, to ids.
func StatusID(name string) string {
	if id, ok := statusAliases[name]; ok {
		return id
	}
	return name
}

func applyStatuses(w World, target string, list []catalogs.StatusEffect) error {
	for _, s := range list {
		if err := w.ApplyStatus(target, StatusID(s.Effect), s.Duration, s.Amplifier); err != nil {
			return err
		}
	}
	return nil
}
